package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxErrorMessages bounds the per-batch error message buffer.
// ErrorCount keeps counting past the bound.
const DefaultMaxErrorMessages = 50

// ImportBatch is the audit record for one import run. Counters are
// mutated directly by the orchestrator and resolvers while rows are
// processed; there is no increment API beyond the fields themselves.
type ImportBatch struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Kind        ImportKind `json:"kind"`
	InitiatorID string     `json:"initiatorId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	TotalRows         int `json:"totalRows"`
	ProcessedRows     int `json:"processedRows"`
	SkippedRows       int `json:"skippedRows"`
	CreatedEvents     int `json:"createdEvents"`
	UpdatedEvents     int `json:"updatedEvents"`
	MatchedTeachers   int `json:"matchedTeachers"`
	CreatedTeachers   int `json:"createdTeachers"`
	MatchedVolunteers int `json:"matchedVolunteers"`
	CreatedVolunteers int `json:"createdVolunteers"`
	UnmatchedCount    int `json:"unmatchedCount"`
	ErrorCount        int `json:"errorCount"`

	Errors []string `json:"errors,omitempty"`

	// MaxErrors overrides DefaultMaxErrorMessages when positive.
	MaxErrors int `json:"-"`
}

// StartBatch opens the audit record for a new import run.
func StartBatch(filename string, kind ImportKind, initiatorID string) *ImportBatch {
	return &ImportBatch{
		ID:          uuid.New(),
		Filename:    filename,
		Kind:        kind,
		InitiatorID: initiatorID,
		StartedAt:   time.Now().UTC(),
	}
}

// Complete stamps the terminal timestamp. Calling it again is a no-op,
// so the first completion (normal or aborted) wins.
func (b *ImportBatch) Complete() {
	if b.CompletedAt != nil {
		return
	}
	now := time.Now().UTC()
	b.CompletedAt = &now
}

// Completed reports whether the batch has been finalized.
func (b *ImportBatch) Completed() bool {
	return b.CompletedAt != nil
}

// RecordError counts a row-level failure and appends the formatted
// message to the bounded buffer.
func (b *ImportBatch) RecordError(format string, args ...any) {
	b.ErrorCount++
	limit := b.MaxErrors
	if limit <= 0 {
		limit = DefaultMaxErrorMessages
	}
	if len(b.Errors) < limit {
		b.Errors = append(b.Errors, fmt.Sprintf(format, args...))
	}
}

// DurationSeconds returns the run duration, or nil while the batch is
// still open.
func (b *ImportBatch) DurationSeconds() *float64 {
	if b.CompletedAt == nil {
		return nil
	}
	d := b.CompletedAt.Sub(b.StartedAt).Seconds()
	return &d
}

// SuccessRate returns (processed - errors) / total as a percentage,
// 0 when the batch saw no rows.
func (b *ImportBatch) SuccessRate() float64 {
	if b.TotalRows == 0 {
		return 0
	}
	return float64(b.ProcessedRows-b.ErrorCount) / float64(b.TotalRows) * 100
}
