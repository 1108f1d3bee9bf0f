package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrUnknownRecord is returned when a review operation names a record
// that does not exist.
var ErrUnknownRecord = errors.New("unknown unmatched record")

// ReviewService is the human-facing side of the review queue: listing
// pending records and resolving them, including explicit participant
// creation.
type ReviewService struct {
	store Store
}

// NewReviewService wires a review service to its stores.
func NewReviewService(store Store) *ReviewService {
	return &ReviewService{store: store}
}

// List returns unmatched records matching the filter.
func (s *ReviewService) List(ctx context.Context, filter UnmatchedFilter) ([]*UnmatchedRecord, error) {
	return s.store.Unmatched.List(ctx, filter)
}

// Get returns one unmatched record by id.
func (s *ReviewService) Get(ctx context.Context, id uuid.UUID) (*UnmatchedRecord, error) {
	rec, err := s.store.Unmatched.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnknownRecord
	}
	return rec, nil
}

// Resolve transitions a pending record to a terminal status. Resolving
// to ResolutionResolved links the record to an existing participant or
// event via linkedID; ResolutionIgnored needs no link.
func (s *ReviewService) Resolve(ctx context.Context, recordID uuid.UUID, status ResolutionStatus, notes, resolverID string, linkedID *uuid.UUID) (*UnmatchedRecord, error) {
	rec, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := rec.Resolve(status, notes, resolverID, linkedID); err != nil {
		return nil, err
	}
	if err := s.store.Unmatched.Update(ctx, rec); err != nil {
		return nil, &PersistenceError{Op: "update unmatched record", Err: err}
	}
	slog.Info("unmatched record resolved",
		"record_id", rec.ID,
		"status", string(status),
		"resolver", resolverID,
	)
	return rec, nil
}

// CreateFromRecord creates a participant from a pending record's
// attempted-match fields, marks the record created, and credits the
// created-participant counter on the batch that queued it. Only teacher
// and volunteer records support creation.
func (s *ReviewService) CreateFromRecord(ctx context.Context, recordID uuid.UUID, notes, resolverID string) (*UnmatchedRecord, error) {
	rec, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status != ResolutionPending {
		return nil, ErrAlreadyResolved
	}

	var linkedID uuid.UUID
	switch rec.Kind {
	case UnmatchedTeacher:
		t := &Teacher{
			ID:             uuid.New(),
			ExternalUserID: rec.ExternalID,
			Name:           rec.Name,
			School:         rec.School,
		}
		if err := s.store.Teachers.Create(ctx, t); err != nil {
			return nil, &PersistenceError{Op: "create teacher from record", Err: err}
		}
		linkedID = t.ID
	case UnmatchedVolunteer:
		first, last := SplitName(rec.Name)
		v := &Volunteer{
			ID:             uuid.New(),
			ExternalUserID: rec.ExternalID,
			FirstName:      first,
			LastName:       last,
			Email:          rec.Email,
			Organization:   rec.Organization,
		}
		if err := s.store.Volunteers.Create(ctx, v); err != nil {
			return nil, &PersistenceError{Op: "create volunteer from record", Err: err}
		}
		linkedID = v.ID
	default:
		return nil, fmt.Errorf("cannot create a participant from a %s record", rec.Kind)
	}

	if err := rec.Resolve(ResolutionCreated, notes, resolverID, &linkedID); err != nil {
		return nil, err
	}
	if err := s.store.Unmatched.Update(ctx, rec); err != nil {
		return nil, &PersistenceError{Op: "update unmatched record", Err: err}
	}

	s.creditBatch(ctx, rec)
	slog.Info("participant created from unmatched record",
		"record_id", rec.ID,
		"kind", string(rec.Kind),
		"resolver", resolverID,
	)
	return rec, nil
}

// creditBatch bumps the owning batch's created-participant counter so
// the audit record reflects late creations from the review queue. A
// missing batch is tolerated; creation already succeeded.
func (s *ReviewService) creditBatch(ctx context.Context, rec *UnmatchedRecord) {
	batch, err := s.store.Batches.Get(ctx, rec.BatchID)
	if err != nil || batch == nil {
		slog.Warn("credit batch for created participant", "batch_id", rec.BatchID, "error", err)
		return
	}
	switch rec.Kind {
	case UnmatchedTeacher:
		batch.CreatedTeachers++
	case UnmatchedVolunteer:
		batch.CreatedVolunteers++
	}
	if err := s.store.Batches.Update(ctx, batch); err != nil {
		slog.Warn("credit batch for created participant", "batch_id", rec.BatchID, "error", err)
	}
}
