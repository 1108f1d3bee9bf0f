package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ImportKind identifies which report layout a batch carries.
type ImportKind string

const (
	KindSessionReport ImportKind = "session_report"
	KindUserReport    ImportKind = "user_report"
)

// Valid reports whether the kind is one of the known report layouts.
func (k ImportKind) Valid() bool {
	return k == KindSessionReport || k == KindUserReport
}

// Normalized column names. Row sources lowercase and trim header cells,
// so lookups against these constants are case-insensitive with respect to
// the original file.
const (
	ColSessionID    = "session id"
	ColTitle        = "title"
	ColDate         = "date"
	ColStatus       = "status"
	ColRole         = "signup role"
	ColName         = "name"
	ColUserID       = "user id"
	ColEmail        = "email"
	ColSchool       = "school name"
	ColOrganization = "organization"
	ColDuration     = "duration"
	ColCategory     = "category"
	ColPartner      = "partner"
	ColRegistered   = "registered student count"
	ColAttended     = "attended student count"
)

// Row is one decoded spreadsheet row, keyed by normalized column name.
type Row map[string]string

// Get returns the trimmed cell value for a column, or "" when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Clone returns a copy safe to retain after the source advances.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RowReader supplies decoded rows to the orchestrator. Implementations
// normalize header names to lowercase. Next returns io.EOF after the
// last row.
type RowReader interface {
	Columns() []string
	Next() (Row, error)
}

// RequiredColumns returns the columns a report kind must carry. An
// extract missing any of them fails as a whole before any row is
// processed.
func RequiredColumns(kind ImportKind) []string {
	switch kind {
	case KindSessionReport:
		return []string{ColSessionID, ColTitle, ColDate, ColStatus, ColRole, ColName}
	case KindUserReport:
		return []string{ColUserID, ColRole, ColName}
	default:
		return nil
	}
}

// MissingColumns returns the required columns absent from a source header.
func MissingColumns(kind ImportKind, columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[strings.ToLower(strings.TrimSpace(c))] = true
	}

	var missing []string
	for _, c := range RequiredColumns(kind) {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// participantRole is the import-facing classification of a row's signup
// role. Student and parent rows are out of scope and skipped, as is any
// role the vocabulary does not recognize.
type participantRole int

const (
	roleSkipped participantRole = iota
	roleTeacher
	roleVolunteer
)

func parseRole(s string) participantRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "educator", "teacher":
		return roleTeacher
	case "professional", "volunteer", "presenter":
		return roleVolunteer
	default:
		return roleSkipped
	}
}

// dateLayouts are the formats the scheduling platform has been observed
// to emit, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 3:04 PM",
}

func parseRowDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty required field %q", ColDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseCount reads an optional non-negative integer cell; anything
// unreadable counts as absent.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
