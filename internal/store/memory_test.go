package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

func TestMemoryEvents_FindContracts(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	ev, err := stores.Events.FindByExternalSessionID(ctx, "S-1")
	if err != nil {
		t.Fatalf("FindByExternalSessionID() error = %v", err)
	}
	if ev != nil {
		t.Error("absent event should be (nil, nil)")
	}

	created := &importer.Event{
		ID:                uuid.New(),
		ExternalSessionID: "S-1",
		Title:             "Careers in Robotics",
		Kind:              importer.EventKindVirtualSession,
		StartsAt:          time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC),
	}
	if err := stores.Events.Create(ctx, created); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Case-insensitive title, same UTC date, kind must match.
	ev, err = stores.Events.FindByTitleAndDate(ctx, "careers in robotics", time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC), importer.EventKindVirtualSession)
	if err != nil {
		t.Fatalf("FindByTitleAndDate() error = %v", err)
	}
	if ev == nil || ev.ID != created.ID {
		t.Error("title+date lookup should find the event")
	}

	ev, err = stores.Events.FindByTitleAndDate(ctx, "careers in robotics", time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), importer.EventKindVirtualSession)
	if err != nil {
		t.Fatalf("FindByTitleAndDate() error = %v", err)
	}
	if ev != nil {
		t.Error("a different date should not match")
	}
}

func TestMemoryEvents_DuplicateExternalID(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	a := &importer.Event{ID: uuid.New(), ExternalSessionID: "S-1", Title: "A", Kind: importer.EventKindVirtualSession}
	b := &importer.Event{ID: uuid.New(), ExternalSessionID: "S-1", Title: "B", Kind: importer.EventKindVirtualSession}

	if err := stores.Events.Create(ctx, a); err != nil {
		t.Fatalf("Create(a) error = %v", err)
	}
	if err := stores.Events.Create(ctx, b); err == nil {
		t.Error("Create(b) should reject a duplicate external session id")
	}
}

func TestMemoryEvents_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	ev := &importer.Event{ID: uuid.New(), ExternalSessionID: "S-1", Title: "Original", Kind: importer.EventKindVirtualSession}
	if err := stores.Events.Create(ctx, ev); err != nil {
		t.Fatal(err)
	}

	got, _ := stores.Events.FindByExternalSessionID(ctx, "S-1")
	got.Title = "mutated"

	again, _ := stores.Events.FindByExternalSessionID(ctx, "S-1")
	if again.Title != "Original" {
		t.Error("mutating a returned event must not change the stored one")
	}

	got.Title = "Updated"
	if err := stores.Events.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	again, _ = stores.Events.FindByExternalSessionID(ctx, "S-1")
	if again.Title != "Updated" {
		t.Error("Update should persist the change")
	}
}

func TestMemoryLinks_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	stores := mem.Stores()

	eventID, teacherID := uuid.New(), uuid.New()
	for i := 0; i < 3; i++ {
		if err := stores.Events.LinkTeacher(ctx, eventID, teacherID); err != nil {
			t.Fatalf("LinkTeacher() error = %v", err)
		}
	}
	if got := mem.LinkedTeachers(eventID); len(got) != 1 {
		t.Errorf("linked teachers = %d, want 1 after repeated links", len(got))
	}
}

func TestMemoryBatches_ListRecentFirst(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	first := importer.StartBatch("a.csv", importer.KindSessionReport, "")
	second := importer.StartBatch("b.csv", importer.KindSessionReport, "")
	if err := stores.Batches.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := stores.Batches.Create(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := stores.Batches.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != second.ID {
		t.Error("List() should return the most recent batch first")
	}
}

func TestMemoryUnmatched_FilterAndCopies(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	batchID := uuid.New()
	rec := &importer.UnmatchedRecord{
		ID:      uuid.New(),
		BatchID: batchID,
		RawRow:  importer.Row{"name": "Jane"},
		Kind:    importer.UnmatchedTeacher,
		Status:  importer.ResolutionPending,
	}
	other := &importer.UnmatchedRecord{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		Kind:    importer.UnmatchedVolunteer,
		Status:  importer.ResolutionPending,
	}
	if err := stores.Unmatched.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := stores.Unmatched.Create(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := stores.Unmatched.List(ctx, importer.UnmatchedFilter{BatchID: &batchID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("batch filter returned %d records", len(got))
	}

	// Raw rows come back as copies.
	got[0].RawRow["name"] = "mutated"
	again, _ := stores.Unmatched.Get(ctx, rec.ID)
	if again.RawRow.Get("name") != "Jane" {
		t.Error("mutating a returned raw row must not change the stored one")
	}
}

func TestMemoryVolunteers_FindByEmailNormalized(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	v := &importer.Volunteer{ID: uuid.New(), FirstName: "Amy", Email: "Amy.Ng@Example.com"}
	if err := stores.Volunteers.Create(ctx, v); err != nil {
		t.Fatal(err)
	}

	got, err := stores.Volunteers.FindByEmail(ctx, "amy.ng@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if got == nil || got.ID != v.ID {
		t.Error("lookup should match regardless of stored email case")
	}
}

func TestMemoryUnmatched_FindPending(t *testing.T) {
	ctx := context.Background()
	stores := NewMemory().Stores()

	rec := &importer.UnmatchedRecord{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		Kind:    importer.UnmatchedTeacher,
		Name:    "Jane Doe",
		Status:  importer.ResolutionPending,
	}
	if err := stores.Unmatched.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := stores.Unmatched.FindPending(ctx, importer.UnmatchedTeacher, "", "jane doe", "")
	if err != nil {
		t.Fatalf("FindPending() error = %v", err)
	}
	if got == nil || got.ID != rec.ID {
		t.Error("lookup should match case-insensitively on name")
	}

	got, err = stores.Unmatched.FindPending(ctx, importer.UnmatchedVolunteer, "", "jane doe", "")
	if err != nil {
		t.Fatalf("FindPending() error = %v", err)
	}
	if got != nil {
		t.Error("a different kind should not match")
	}

	// Terminal records never match.
	if err := rec.Resolve(importer.ResolutionIgnored, "", "admin-1", nil); err != nil {
		t.Fatal(err)
	}
	if err := stores.Unmatched.Update(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err = stores.Unmatched.FindPending(ctx, importer.UnmatchedTeacher, "", "Jane Doe", "")
	if err != nil {
		t.Fatalf("FindPending() error = %v", err)
	}
	if got != nil {
		t.Error("an ignored record should not suppress the queue")
	}
}
