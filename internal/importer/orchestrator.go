package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultAcceptedPartner is the partner tag processed when no other is
// configured.
const DefaultAcceptedPartner = "PREP-KC"

// Options tunes orchestrator behavior.
type Options struct {
	// AcceptedPartner filters rows when the source carries a partner
	// column; rows tagged otherwise are counted as skipped.
	AcceptedPartner string

	// DefaultDurationMinutes is used for created events whose row omits
	// a duration.
	DefaultDurationMinutes int
}

// Orchestrator drives the per-row import pipeline: scope filters, event
// resolution through a batch-scoped cache, participant resolution, and
// the running counters on the audit record.
type Orchestrator struct {
	store           Store
	events          *EventResolver
	participants    *ParticipantResolver
	acceptedPartner string
}

// NewOrchestrator composes the resolvers over one Store.
func NewOrchestrator(store Store, opts Options) *Orchestrator {
	if opts.AcceptedPartner == "" {
		opts.AcceptedPartner = DefaultAcceptedPartner
	}
	return &Orchestrator{
		store:           store,
		events:          NewEventResolver(store.Events, opts.DefaultDurationMinutes),
		participants:    NewParticipantResolver(store.Teachers, store.Volunteers, store.Unmatched),
		acceptedPartner: opts.AcceptedPartner,
	}
}

// Run processes one extract sequentially, row by row. Once the kind is
// accepted it always returns the batch audit record, even when the run
// aborts, so the caller can show the operator what happened. The
// returned error is non-nil for file-level validation failures
// (MissingColumnsError) and storage failures (PersistenceError);
// row-level problems are recorded on the batch and do not stop the run.
//
// Re-running the same input is safe: matching is keyed on external
// identities and the review queue deduplicates pending records, so the
// second pass yields zero net new entities and zero new queue entries.
func (o *Orchestrator) Run(ctx context.Context, kind ImportKind, filename, initiatorID string, src RowReader) (*ImportBatch, []*UnmatchedRecord, error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("unknown import kind %q", kind)
	}

	batch := StartBatch(filename, kind, initiatorID)

	// Hard precondition: the header must carry every required column.
	// The failed attempt still leaves an inspectable audit record.
	if missing := MissingColumns(kind, src.Columns()); len(missing) > 0 {
		err := &MissingColumnsError{Kind: kind, Columns: missing}
		batch.RecordError("%s", err.Error())
		batch.Complete()
		if cerr := o.store.Batches.Create(ctx, batch); cerr != nil {
			return batch, nil, &PersistenceError{Op: "create import batch", Err: cerr}
		}
		return batch, nil, err
	}

	if err := o.store.Batches.Create(ctx, batch); err != nil {
		return batch, nil, &PersistenceError{Op: "create import batch", Err: err}
	}

	// Batch-scoped event cache: the first row referencing a session
	// establishes the in-memory handle, later rows enrich it without
	// re-querying storage.
	cache := make(map[string]*Event)
	hasPartner := hasColumn(src.Columns(), ColPartner)

	rowNum := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A source that cannot advance cannot be resumed mid-file.
			batch.RecordError("row %d: read: %v", rowNum+1, err)
			break
		}
		rowNum++
		batch.TotalRows++

		if hasPartner && !strings.EqualFold(row.Get(ColPartner), o.acceptedPartner) {
			batch.SkippedRows++
			continue
		}

		role := parseRole(row.Get(ColRole))
		if role == roleSkipped {
			batch.SkippedRows++
			continue
		}

		if err := o.processRow(ctx, batch, kind, rowNum, row, role, cache); err != nil {
			return o.abort(ctx, batch, rowNum, err)
		}
	}

	batch.Complete()
	if err := o.store.Batches.Update(ctx, batch); err != nil {
		return batch, nil, &PersistenceError{Op: "finalize import batch", Err: err}
	}

	recs, err := o.store.Unmatched.List(ctx, UnmatchedFilter{BatchID: &batch.ID})
	if err != nil {
		return batch, nil, &PersistenceError{Op: "list unmatched records", Err: err}
	}

	slog.Info("import complete",
		"batch_id", batch.ID,
		"kind", string(kind),
		"total_rows", batch.TotalRows,
		"processed", batch.ProcessedRows,
		"skipped", batch.SkippedRows,
		"unmatched", batch.UnmatchedCount,
		"errors", batch.ErrorCount,
	)
	return batch, recs, nil
}

// processRow handles one in-scope row. A non-nil return is a systemic
// storage failure; row-level problems are recorded on the batch and
// swallowed so the run continues.
func (o *Orchestrator) processRow(ctx context.Context, batch *ImportBatch, kind ImportKind, rowNum int, row Row, role participantRole, cache map[string]*Event) error {
	name := row.Get(ColName)
	if name == "" {
		batch.RecordError("row %d: empty required field %q", rowNum, ColName)
		return nil
	}

	var ev *Event
	if kind == KindSessionReport {
		title := row.Get(ColTitle)
		if title == "" {
			batch.RecordError("row %d: empty required field %q", rowNum, ColTitle)
			return nil
		}
		startsAt, err := parseRowDate(row.Get(ColDate))
		if err != nil {
			batch.RecordError("row %d: %v", rowNum, err)
			return nil
		}

		ev, err = o.resolveEventCached(ctx, batch, cache, EventInput{
			ExternalSessionID: row.Get(ColSessionID),
			Title:             title,
			StartsAt:          startsAt,
			StatusText:        row.Get(ColStatus),
			DurationMinutes:   parseCount(row.Get(ColDuration)),
			Category:          row.Get(ColCategory),
		})
		if err != nil {
			return err
		}

		// Count merges apply on every row, cache hit or not.
		if ev.MergeCounts(parseCount(row.Get(ColRegistered)), parseCount(row.Get(ColAttended))) {
			if err := o.store.Events.Update(ctx, ev); err != nil {
				return &PersistenceError{Op: "merge event counts", Err: err}
			}
		}
	}

	rc := RowContext{Number: rowNum, Raw: row}
	externalUserID := row.Get(ColUserID)

	switch role {
	case roleTeacher:
		t, err := o.participants.ResolveTeacher(ctx, batch, rc, name, row.Get(ColSchool), externalUserID)
		if err != nil {
			return err
		}
		if t != nil && ev != nil {
			if err := o.store.Events.LinkTeacher(ctx, ev.ID, t.ID); err != nil {
				return &PersistenceError{Op: "link teacher to event", Err: err}
			}
		}
	case roleVolunteer:
		v, err := o.participants.ResolveVolunteer(ctx, batch, rc, name, row.Get(ColEmail), row.Get(ColOrganization), externalUserID)
		if err != nil {
			return err
		}
		if v != nil && ev != nil {
			if err := o.store.Events.LinkVolunteer(ctx, ev.ID, v.ID); err != nil {
				return &PersistenceError{Op: "link volunteer to event", Err: err}
			}
		}
	}

	batch.ProcessedRows++
	return nil
}

// resolveEventCached reuses the batch-scoped event handle so repeated
// rows for one session do not re-query storage.
func (o *Orchestrator) resolveEventCached(ctx context.Context, batch *ImportBatch, cache map[string]*Event, in EventInput) (*Event, error) {
	key := eventCacheKey(in)
	if ev, ok := cache[key]; ok {
		return ev, nil
	}
	ev, _, err := o.events.ResolveOrCreate(ctx, in, batch)
	if err != nil {
		return nil, err
	}
	cache[key] = ev
	return ev, nil
}

// eventCacheKey keys on the external session id, falling back to
// title+date when the id is absent.
func eventCacheKey(in EventInput) string {
	if in.ExternalSessionID != "" {
		return "id:" + in.ExternalSessionID
	}
	return "title:" + strings.ToLower(in.Title) + "|" + in.StartsAt.Format("2006-01-02")
}

// abort finalizes a batch after a systemic failure. Remaining rows are
// dropped; the batch record and any queued unmatched records survive so
// the operator can inspect and safely re-run.
func (o *Orchestrator) abort(ctx context.Context, batch *ImportBatch, rowNum int, cause error) (*ImportBatch, []*UnmatchedRecord, error) {
	batch.RecordError("row %d: aborting: %v", rowNum, cause)
	batch.Complete()
	if err := o.store.Batches.Update(ctx, batch); err != nil {
		slog.Error("persist aborted batch", "batch_id", batch.ID, "error", err)
	}
	recs, err := o.store.Unmatched.List(ctx, UnmatchedFilter{BatchID: &batch.ID})
	if err != nil {
		slog.Error("list unmatched for aborted batch", "batch_id", batch.ID, "error", err)
		recs = nil
	}
	slog.Warn("import aborted",
		"batch_id", batch.ID,
		"row", rowNum,
		"error", cause,
	)
	return batch, recs, cause
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}
