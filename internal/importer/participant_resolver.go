package importer

import (
	"context"

	"github.com/google/uuid"
)

// RowContext identifies the source row an unmatched record is queued
// for. The raw row is cloned into the record verbatim.
type RowContext struct {
	Number int
	Raw    Row
}

// ParticipantResolver matches rows to existing teachers and volunteers.
// It never creates a participant: a failed match yields an
// UnmatchedRecord and a nil participant, leaving creation to the review
// queue as an explicit human action.
type ParticipantResolver struct {
	teachers   TeacherStore
	volunteers VolunteerStore
	unmatched  UnmatchedStore
}

// NewParticipantResolver wires a resolver to its stores.
func NewParticipantResolver(teachers TeacherStore, volunteers VolunteerStore, unmatched UnmatchedStore) *ParticipantResolver {
	return &ParticipantResolver{teachers: teachers, volunteers: volunteers, unmatched: unmatched}
}

// ResolveTeacher matches a teacher by external user id, then by
// case-insensitive full name. Teacher feeds carry no email, so there is
// no email tier. A name-tier match has the external id backfilled so the
// next import resolves on tier 1. No match queues an UnmatchedRecord and
// returns nil.
func (r *ParticipantResolver) ResolveTeacher(ctx context.Context, batch *ImportBatch, row RowContext, name, school, externalUserID string) (*Teacher, error) {
	if externalUserID != "" {
		t, err := r.teachers.FindByExternalUserID(ctx, externalUserID)
		if err != nil {
			return nil, &PersistenceError{Op: "find teacher by external user id", Err: err}
		}
		if t != nil {
			batch.MatchedTeachers++
			return t, nil
		}
	}

	if name != "" {
		t, err := r.teachers.FindByName(ctx, name)
		if err != nil {
			return nil, &PersistenceError{Op: "find teacher by name", Err: err}
		}
		if t != nil {
			if err := r.learnTeacherID(ctx, t, externalUserID); err != nil {
				return nil, err
			}
			batch.MatchedTeachers++
			return t, nil
		}
	}

	rec := &UnmatchedRecord{
		ID:         uuid.New(),
		BatchID:    batch.ID,
		RowNumber:  row.Number,
		RawRow:     row.Raw.Clone(),
		Kind:       UnmatchedTeacher,
		Name:       name,
		School:     school,
		ExternalID: externalUserID,
		Status:     ResolutionPending,
	}
	return nil, r.queueUnmatched(ctx, batch, rec)
}

// ResolveVolunteer matches a volunteer by external user id, then by
// verified email, then by the split first+last name. Email and name
// matches have the external id backfilled. No match queues an
// UnmatchedRecord and returns nil.
func (r *ParticipantResolver) ResolveVolunteer(ctx context.Context, batch *ImportBatch, row RowContext, name, email, organization, externalUserID string) (*Volunteer, error) {
	if externalUserID != "" {
		v, err := r.volunteers.FindByExternalUserID(ctx, externalUserID)
		if err != nil {
			return nil, &PersistenceError{Op: "find volunteer by external user id", Err: err}
		}
		if v != nil {
			batch.MatchedVolunteers++
			return v, nil
		}
	}

	if email != "" {
		v, err := r.volunteers.FindByEmail(ctx, NormalizeEmail(email))
		if err != nil {
			return nil, &PersistenceError{Op: "find volunteer by email", Err: err}
		}
		if v != nil {
			if err := r.learnVolunteerID(ctx, v, externalUserID); err != nil {
				return nil, err
			}
			batch.MatchedVolunteers++
			return v, nil
		}
	}

	if first, last := SplitName(name); first != "" {
		v, err := r.volunteers.FindByName(ctx, first, last)
		if err != nil {
			return nil, &PersistenceError{Op: "find volunteer by name", Err: err}
		}
		if v != nil {
			if err := r.learnVolunteerID(ctx, v, externalUserID); err != nil {
				return nil, err
			}
			batch.MatchedVolunteers++
			return v, nil
		}
	}

	rec := &UnmatchedRecord{
		ID:           uuid.New(),
		BatchID:      batch.ID,
		RowNumber:    row.Number,
		RawRow:       row.Raw.Clone(),
		Kind:         UnmatchedVolunteer,
		Name:         name,
		Email:        NormalizeEmail(email),
		Organization: organization,
		ExternalID:   externalUserID,
		Status:       ResolutionPending,
	}
	return nil, r.queueUnmatched(ctx, batch, rec)
}

// queueUnmatched appends rec to the review queue unless a pending record
// with the same identity tuple is already waiting, so re-running a file
// does not pile duplicates in front of the reviewer. The batch still
// counts the row as unmatched either way.
func (r *ParticipantResolver) queueUnmatched(ctx context.Context, batch *ImportBatch, rec *UnmatchedRecord) error {
	existing, err := r.unmatched.FindPending(ctx, rec.Kind, rec.ExternalID, rec.Name, rec.Email)
	if err != nil {
		return &PersistenceError{Op: "find pending unmatched " + string(rec.Kind), Err: err}
	}
	if existing == nil {
		if err := r.unmatched.Create(ctx, rec); err != nil {
			return &PersistenceError{Op: "queue unmatched " + string(rec.Kind), Err: err}
		}
	}
	batch.UnmatchedCount++
	return nil
}

// learnTeacherID backfills a newly discovered external id onto a teacher
// matched by a lower tier, so future imports resolve on tier 1. An id
// already present is never overwritten.
func (r *ParticipantResolver) learnTeacherID(ctx context.Context, t *Teacher, externalUserID string) error {
	if t.ExternalUserID != "" || externalUserID == "" {
		return nil
	}
	t.ExternalUserID = externalUserID
	if err := r.teachers.Update(ctx, t); err != nil {
		return &PersistenceError{Op: "backfill teacher external user id", Err: err}
	}
	return nil
}

func (r *ParticipantResolver) learnVolunteerID(ctx context.Context, v *Volunteer, externalUserID string) error {
	if v.ExternalUserID != "" || externalUserID == "" {
		return nil
	}
	v.ExternalUserID = externalUserID
	if err := r.volunteers.Update(ctx, v); err != nil {
		return &PersistenceError{Op: "backfill volunteer external user id", Err: err}
	}
	return nil
}
