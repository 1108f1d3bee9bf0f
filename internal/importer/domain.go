package importer

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// EventStatus is the internal lifecycle status of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusConfirmed EventStatus = "confirmed"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
	StatusNoShow    EventStatus = "no_show"
)

// statusVocabulary maps upstream status text to an internal status.
// Unlisted text falls back to draft.
var statusVocabulary = map[string]EventStatus{
	"successfully completed": StatusCompleted,
	"completed":              StatusCompleted,
	"complete":               StatusCompleted,
	"confirmed":              StatusConfirmed,
	"scheduled":              StatusConfirmed,
	"cancelled":              StatusCancelled,
	"canceled":               StatusCancelled,
	"no show":                StatusNoShow,
	"no-show":                StatusNoShow,
	"teacher no-show":        StatusNoShow,
}

// ParseEventStatus maps upstream status text through the fixed
// vocabulary table.
func ParseEventStatus(text string) EventStatus {
	if st, ok := statusVocabulary[strings.ToLower(strings.TrimSpace(text))]; ok {
		return st
	}
	return StatusDraft
}

// EventKind distinguishes event types in storage. The importer only ever
// matches and creates virtual sessions.
type EventKind string

const EventKindVirtualSession EventKind = "virtual_session"

// SourceVirtualImport is the provenance tag written onto events this
// importer creates.
const SourceVirtualImport = "virtual_session_import"

// Event is the aggregate matched or created by the event resolver. Only
// the fields the importer consults or maintains appear here.
type Event struct {
	ID                uuid.UUID   `json:"id"`
	ExternalSessionID string      `json:"externalSessionId,omitempty"`
	Title             string      `json:"title"`
	Kind              EventKind   `json:"kind"`
	Status            EventStatus `json:"status"`
	StartsAt          time.Time   `json:"startsAt"`
	EndsAt            time.Time   `json:"endsAt"`
	DurationMinutes   int         `json:"durationMinutes"`
	Category          string      `json:"category,omitempty"`
	Source            string      `json:"source,omitempty"`
	RegisteredCount   int         `json:"registeredCount"`
	AttendedCount     int         `json:"attendedCount"`
}

// MergeCounts raises the registered/attended student counts to the
// incoming values, never lowering them. Reports whether anything changed.
func (e *Event) MergeCounts(registered, attended int) bool {
	changed := false
	if registered > e.RegisteredCount {
		e.RegisteredCount = registered
		changed = true
	}
	if attended > e.AttendedCount {
		e.AttendedCount = attended
		changed = true
	}
	return changed
}

// Teacher is a school-side participant. Teacher feeds carry no email, so
// matching runs on external id and full name only.
type Teacher struct {
	ID             uuid.UUID `json:"id"`
	ExternalUserID string    `json:"externalUserId,omitempty"`
	Name           string    `json:"name"`
	School         string    `json:"school,omitempty"`
}

// Volunteer is a professional-side participant.
type Volunteer struct {
	ID             uuid.UUID `json:"id"`
	ExternalUserID string    `json:"externalUserId,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName,omitempty"`
	Email          string    `json:"email,omitempty"`
	Organization   string    `json:"organization,omitempty"`
}

// FullName joins the stored name parts for display.
func (v *Volunteer) FullName() string {
	if v.LastName == "" {
		return v.FirstName
	}
	return v.FirstName + " " + v.LastName
}

// SplitName applies the first-token/remainder split used for volunteer
// name matching: first whitespace-delimited token is the first name, the
// remainder is the last name. Multi-word first names and suffixes come
// out wrong under this rule; it is kept as-is because identity links from
// earlier imports depend on it.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	i := strings.IndexFunc(full, unicode.IsSpace)
	if i < 0 {
		return full, ""
	}
	return full[:i], strings.TrimSpace(full[i:])
}

// NormalizeEmail lowercases and trims an address for index lookups.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
