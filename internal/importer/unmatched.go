package importer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UnmatchedKind classifies what a queued row failed to resolve to.
type UnmatchedKind string

const (
	UnmatchedTeacher   UnmatchedKind = "teacher"
	UnmatchedVolunteer UnmatchedKind = "volunteer"
	UnmatchedEvent     UnmatchedKind = "event"
	UnmatchedCombined  UnmatchedKind = "combined"
)

// Valid reports whether the kind is part of the closed enumeration.
func (k UnmatchedKind) Valid() bool {
	switch k {
	case UnmatchedTeacher, UnmatchedVolunteer, UnmatchedEvent, UnmatchedCombined:
		return true
	}
	return false
}

// ResolutionStatus is the review state of an unmatched record. pending
// is the only initial state; the other three are terminal.
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionIgnored  ResolutionStatus = "ignored"
	ResolutionCreated  ResolutionStatus = "created"
)

// Terminal reports whether the status ends the record's review lifecycle.
func (s ResolutionStatus) Terminal() bool {
	switch s {
	case ResolutionResolved, ResolutionIgnored, ResolutionCreated:
		return true
	}
	return false
}

// Valid reports whether the status is part of the closed enumeration.
func (s ResolutionStatus) Valid() bool {
	return s == ResolutionPending || s.Terminal()
}

// ErrAlreadyResolved is returned when Resolve is called on a record that
// already reached a terminal status.
var ErrAlreadyResolved = errors.New("unmatched record already resolved")

// UnmatchedRecord is one row the participant resolver could not resolve,
// queued for human review. The verbatim row is retained so the import
// can be replayed once the ambiguity is fixed.
type UnmatchedRecord struct {
	ID        uuid.UUID     `json:"id"`
	BatchID   uuid.UUID     `json:"batchId"`
	RowNumber int           `json:"rowNumber"`
	RawRow    Row           `json:"rawRow"`
	Kind      UnmatchedKind `json:"kind"`

	// Attempted-match fields, retained for the review UI.
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	ExternalID   string `json:"externalId,omitempty"`
	School       string `json:"school,omitempty"`
	Organization string `json:"organization,omitempty"`

	Status     ResolutionStatus `json:"status"`
	ResolvedBy string           `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time       `json:"resolvedAt,omitempty"`
	Notes      string           `json:"notes,omitempty"`

	// Back-references set when a human resolution links to a record.
	ResolvedTeacherID   *uuid.UUID `json:"resolvedTeacherId,omitempty"`
	ResolvedVolunteerID *uuid.UUID `json:"resolvedVolunteerId,omitempty"`
	ResolvedEventID     *uuid.UUID `json:"resolvedEventId,omitempty"`
}

// Resolve moves a pending record to a terminal status, stamping resolver
// attribution exactly once. Terminal records are immutable: a second call
// returns ErrAlreadyResolved without touching ResolvedAt.
func (r *UnmatchedRecord) Resolve(status ResolutionStatus, notes, resolverID string, linkedID *uuid.UUID) error {
	if r.Status != ResolutionPending {
		return ErrAlreadyResolved
	}
	if !status.Terminal() {
		return fmt.Errorf("invalid resolution status %q", status)
	}

	now := time.Now().UTC()
	r.Status = status
	r.Notes = notes
	r.ResolvedBy = resolverID
	r.ResolvedAt = &now

	if linkedID != nil {
		id := *linkedID
		switch r.Kind {
		case UnmatchedTeacher:
			r.ResolvedTeacherID = &id
		case UnmatchedVolunteer:
			r.ResolvedVolunteerID = &id
		case UnmatchedEvent, UnmatchedCombined:
			r.ResolvedEventID = &id
		}
	}
	return nil
}
