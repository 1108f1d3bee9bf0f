package importer

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want participantRole
	}{
		{"Educator", roleTeacher},
		{"teacher", roleTeacher},
		{"  TEACHER  ", roleTeacher},
		{"Professional", roleVolunteer},
		{"volunteer", roleVolunteer},
		{"Presenter", roleVolunteer},
		{"Student", roleSkipped},
		{"Parent", roleSkipped},
		{"", roleSkipped},
		{"something else", roleSkipped},
	}

	for _, tt := range tests {
		if got := parseRole(tt.in); got != tt.want {
			t.Errorf("parseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRowDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-15 14:30", time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"03/15/2026 14:30", time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"03/15/2026", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"3/15/2026 2:30 PM", time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseRowDate(tt.in)
		if err != nil {
			t.Errorf("parseRowDate(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseRowDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRowDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "not a date", "15-03-2026x"} {
		if _, err := parseRowDate(in); err == nil {
			t.Errorf("parseRowDate(%q) expected error", in)
		}
	}
}

func TestMissingColumns(t *testing.T) {
	columns := []string{"Session ID", "Title", "Date", "Status", "Signup Role", "Name", "Partner"}
	if missing := MissingColumns(KindSessionReport, columns); len(missing) != 0 {
		t.Errorf("MissingColumns() = %v, want none", missing)
	}

	missing := MissingColumns(KindSessionReport, []string{"title", "name"})
	want := []string{ColSessionID, ColDate, ColStatus, ColRole}
	if len(missing) != len(want) {
		t.Fatalf("MissingColumns() = %v, want %v", missing, want)
	}
	for i, col := range want {
		if missing[i] != col {
			t.Errorf("MissingColumns()[%d] = %q, want %q", i, missing[i], col)
		}
	}
}

func TestMissingColumns_UserReport(t *testing.T) {
	if missing := MissingColumns(KindUserReport, []string{"user id", "signup role", "name", "email"}); len(missing) != 0 {
		t.Errorf("MissingColumns() = %v, want none", missing)
	}
	if missing := MissingColumns(KindUserReport, []string{"name"}); len(missing) != 2 {
		t.Errorf("MissingColumns() = %v, want 2 entries", missing)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"12", 12},
		{" 7 ", 7},
		{"0", 0},
		{"", 0},
		{"-3", 0},
		{"abc", 0},
		{"3.5", 0},
	}

	for _, tt := range tests {
		if got := parseCount(tt.in); got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRowGet_Trims(t *testing.T) {
	row := Row{ColName: "  Jane Smith  "}
	if got := row.Get(ColName); got != "Jane Smith" {
		t.Errorf("Get() = %q, want %q", got, "Jane Smith")
	}
	if got := row.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRowClone_Independent(t *testing.T) {
	row := Row{ColName: "Jane"}
	clone := row.Clone()
	clone[ColName] = "changed"
	if row.Get(ColName) != "Jane" {
		t.Error("Clone() should not share storage with the original")
	}
}
