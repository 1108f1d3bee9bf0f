package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// The store interfaces below are the importer's only view of storage.
// Find methods return (nil, nil) when no record matches; a non-nil error
// always means the storage layer itself failed and the batch must abort.

// EventStore persists event aggregates and their participant links.
type EventStore interface {
	FindByExternalSessionID(ctx context.Context, externalID string) (*Event, error)

	// FindByTitleAndDate matches case-insensitively on title for events
	// of the given kind occurring on the same UTC calendar date.
	FindByTitleAndDate(ctx context.Context, title string, date time.Time, kind EventKind) (*Event, error)

	Create(ctx context.Context, ev *Event) error
	Update(ctx context.Context, ev *Event) error

	// LinkTeacher and LinkVolunteer are idempotent: linking an already
	// linked participant is a no-op.
	LinkTeacher(ctx context.Context, eventID, teacherID uuid.UUID) error
	LinkVolunteer(ctx context.Context, eventID, volunteerID uuid.UUID) error
}

// TeacherStore persists teachers.
type TeacherStore interface {
	FindByExternalUserID(ctx context.Context, externalID string) (*Teacher, error)

	// FindByName matches case-insensitively on the full name.
	FindByName(ctx context.Context, name string) (*Teacher, error)

	Create(ctx context.Context, t *Teacher) error
	Update(ctx context.Context, t *Teacher) error
}

// VolunteerStore persists volunteers and their email index.
type VolunteerStore interface {
	FindByExternalUserID(ctx context.Context, externalID string) (*Volunteer, error)

	// FindByEmail looks up a normalized address in the verified email
	// index.
	FindByEmail(ctx context.Context, email string) (*Volunteer, error)

	// FindByName matches case-insensitively on the split first and last
	// name.
	FindByName(ctx context.Context, firstName, lastName string) (*Volunteer, error)

	Create(ctx context.Context, v *Volunteer) error
	Update(ctx context.Context, v *Volunteer) error
}

// BatchStore persists import audit records.
type BatchStore interface {
	Create(ctx context.Context, b *ImportBatch) error
	Update(ctx context.Context, b *ImportBatch) error
	Get(ctx context.Context, id uuid.UUID) (*ImportBatch, error)

	// List returns batches most recent first.
	List(ctx context.Context) ([]*ImportBatch, error)
}

// UnmatchedFilter narrows unmatched record listings. Zero-valued fields
// match everything.
type UnmatchedFilter struct {
	BatchID *uuid.UUID
	Kind    UnmatchedKind
	Status  ResolutionStatus
}

// UnmatchedStore persists the review queue.
type UnmatchedStore interface {
	Create(ctx context.Context, rec *UnmatchedRecord) error
	Update(ctx context.Context, rec *UnmatchedRecord) error
	Get(ctx context.Context, id uuid.UUID) (*UnmatchedRecord, error)
	List(ctx context.Context, filter UnmatchedFilter) ([]*UnmatchedRecord, error)

	// FindPending returns a pending record carrying the same identity
	// tuple: kind, external id, case-insensitive name, normalized email.
	// Records in a terminal status never match.
	FindPending(ctx context.Context, kind UnmatchedKind, externalID, name, email string) (*UnmatchedRecord, error)
}

// Store bundles the narrow storage interfaces the importer consumes.
type Store struct {
	Events     EventStore
	Teachers   TeacherStore
	Volunteers VolunteerStore
	Batches    BatchStore
	Unmatched  UnmatchedStore
}
