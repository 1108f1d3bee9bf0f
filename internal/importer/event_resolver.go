package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultDurationMinutes is assumed when an extract omits the duration
// column.
const DefaultDurationMinutes = 60

// EventResolution says whether ResolveOrCreate found an existing event
// or made a new one.
type EventResolution string

const (
	EventMatched EventResolution = "matched"
	EventCreated EventResolution = "created"
)

// EventInput carries the event-facing fields of one row.
type EventInput struct {
	ExternalSessionID string
	Title             string
	StartsAt          time.Time
	StatusText        string
	DurationMinutes   int // 0 means the column was absent
	Category          string
}

// EventResolver matches rows to existing events or creates them. Events
// always resolve to a match or a create; they are never routed to the
// unmatched queue.
type EventResolver struct {
	events          EventStore
	defaultDuration int
}

// NewEventResolver wires a resolver to an event store.
func NewEventResolver(events EventStore, defaultDurationMinutes int) *EventResolver {
	if defaultDurationMinutes <= 0 {
		defaultDurationMinutes = DefaultDurationMinutes
	}
	return &EventResolver{events: events, defaultDuration: defaultDurationMinutes}
}

// ResolveOrCreate applies the matching tiers in order, first hit wins:
//
//  1. exact lookup by external session id
//  2. case-insensitive title + same calendar date + virtual-session kind
//  3. create a new event
//
// Matched events only have currently-empty fields backfilled; fields
// already set by another source are never overwritten. The batch's
// created/updated event counters are incremented accordingly.
func (r *EventResolver) ResolveOrCreate(ctx context.Context, in EventInput, batch *ImportBatch) (*Event, EventResolution, error) {
	if in.ExternalSessionID != "" {
		ev, err := r.events.FindByExternalSessionID(ctx, in.ExternalSessionID)
		if err != nil {
			return nil, "", &PersistenceError{Op: "find event by external session id", Err: err}
		}
		if ev != nil {
			if err := r.backfill(ctx, ev, in); err != nil {
				return nil, "", err
			}
			batch.UpdatedEvents++
			return ev, EventMatched, nil
		}
	}

	ev, err := r.events.FindByTitleAndDate(ctx, in.Title, in.StartsAt, EventKindVirtualSession)
	if err != nil {
		return nil, "", &PersistenceError{Op: "find event by title and date", Err: err}
	}
	if ev != nil {
		if err := r.backfill(ctx, ev, in); err != nil {
			return nil, "", err
		}
		batch.UpdatedEvents++
		return ev, EventMatched, nil
	}

	duration := in.DurationMinutes
	if duration <= 0 {
		duration = r.defaultDuration
	}
	ev = &Event{
		ID:                uuid.New(),
		ExternalSessionID: in.ExternalSessionID,
		Title:             in.Title,
		Kind:              EventKindVirtualSession,
		Status:            ParseEventStatus(in.StatusText),
		StartsAt:          in.StartsAt,
		EndsAt:            in.StartsAt.Add(time.Duration(duration) * time.Minute),
		DurationMinutes:   duration,
		Category:          in.Category,
		Source:            SourceVirtualImport,
	}
	if err := r.events.Create(ctx, ev); err != nil {
		return nil, "", &PersistenceError{Op: "create event", Err: err}
	}
	batch.CreatedEvents++
	return ev, EventCreated, nil
}

// backfill writes currently-empty fields onto a matched event and
// persists only when something changed.
func (r *EventResolver) backfill(ctx context.Context, ev *Event, in EventInput) error {
	changed := false
	if ev.ExternalSessionID == "" && in.ExternalSessionID != "" {
		ev.ExternalSessionID = in.ExternalSessionID
		changed = true
	}
	if ev.Category == "" && in.Category != "" {
		ev.Category = in.Category
		changed = true
	}
	if ev.DurationMinutes == 0 && in.DurationMinutes > 0 {
		ev.DurationMinutes = in.DurationMinutes
		changed = true
	}
	if !changed {
		return nil
	}
	if err := r.events.Update(ctx, ev); err != nil {
		return &PersistenceError{Op: "update event", Err: err}
	}
	return nil
}
