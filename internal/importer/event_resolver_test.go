package importer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
	"github.com/admiralorbiter/VMS-sub002/internal/store"
)

func TestEventResolver_CreatesWhenNoMatch(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemory().Stores()
	resolver := importer.NewEventResolver(stores.Events, 0)
	batch := importer.StartBatch("report.csv", importer.KindSessionReport, "")

	starts := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	ev, res, err := resolver.ResolveOrCreate(ctx, importer.EventInput{
		ExternalSessionID: "S-100",
		Title:             "Careers in Robotics",
		StartsAt:          starts,
		StatusText:        "Successfully Completed",
	}, batch)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	if res != importer.EventCreated {
		t.Errorf("resolution = %q, want created", res)
	}
	if ev.Status != importer.StatusCompleted {
		t.Errorf("Status = %q, want completed", ev.Status)
	}
	if ev.Kind != importer.EventKindVirtualSession {
		t.Errorf("Kind = %q, want virtual_session", ev.Kind)
	}
	if ev.Source != importer.SourceVirtualImport {
		t.Errorf("Source = %q, want %q", ev.Source, importer.SourceVirtualImport)
	}
	if ev.DurationMinutes != importer.DefaultDurationMinutes {
		t.Errorf("DurationMinutes = %d, want default %d", ev.DurationMinutes, importer.DefaultDurationMinutes)
	}
	if want := starts.Add(time.Duration(importer.DefaultDurationMinutes) * time.Minute); !ev.EndsAt.Equal(want) {
		t.Errorf("EndsAt = %v, want %v", ev.EndsAt, want)
	}
	if batch.CreatedEvents != 1 {
		t.Errorf("CreatedEvents = %d, want 1", batch.CreatedEvents)
	}

	// The created event must be findable by its external id.
	found, err := stores.Events.FindByExternalSessionID(ctx, "S-100")
	if err != nil {
		t.Fatalf("FindByExternalSessionID() error = %v", err)
	}
	if found == nil || found.ID != ev.ID {
		t.Error("created event not persisted under its external session id")
	}
}

func TestEventResolver_MatchesByExternalID(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemory().Stores()
	existing := &importer.Event{
		ID:                uuid.New(),
		ExternalSessionID: "S-200",
		Title:             "Old Title",
		Kind:              importer.EventKindVirtualSession,
		Status:            importer.StatusConfirmed,
		StartsAt:          time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:            time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := stores.Events.Create(ctx, existing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolver := importer.NewEventResolver(stores.Events, 0)
	batch := importer.StartBatch("report.csv", importer.KindSessionReport, "")

	ev, res, err := resolver.ResolveOrCreate(ctx, importer.EventInput{
		ExternalSessionID: "S-200",
		Title:             "Completely Different Title",
		StartsAt:          time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Category:          "STEM",
		DurationMinutes:   45,
	}, batch)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	if res != importer.EventMatched {
		t.Errorf("resolution = %q, want matched", res)
	}
	if ev.ID != existing.ID {
		t.Error("should return the existing event")
	}
	if batch.UpdatedEvents != 1 || batch.CreatedEvents != 0 {
		t.Errorf("counters = created %d updated %d, want 0/1", batch.CreatedEvents, batch.UpdatedEvents)
	}

	// Empty fields backfilled, existing ones untouched.
	if ev.Category != "STEM" {
		t.Errorf("Category = %q, want backfilled STEM", ev.Category)
	}
	if ev.Title != "Old Title" {
		t.Errorf("Title = %q, existing title must not be overwritten", ev.Title)
	}
}

func TestEventResolver_MatchesByTitleAndDate(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemory().Stores()
	existing := &importer.Event{
		ID:       uuid.New(),
		Title:    "Careers in Nursing",
		Kind:     importer.EventKindVirtualSession,
		Status:   importer.StatusConfirmed,
		StartsAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := stores.Events.Create(ctx, existing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolver := importer.NewEventResolver(stores.Events, 0)
	batch := importer.StartBatch("report.csv", importer.KindSessionReport, "")

	// Same calendar date, different hour, different title case.
	ev, res, err := resolver.ResolveOrCreate(ctx, importer.EventInput{
		ExternalSessionID: "S-300",
		Title:             "CAREERS IN NURSING",
		StartsAt:          time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC),
	}, batch)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	if res != importer.EventMatched {
		t.Fatalf("resolution = %q, want matched", res)
	}
	if ev.ID != existing.ID {
		t.Error("should match the existing event by title and date")
	}

	// The external id is learned for future tier-1 matches.
	if ev.ExternalSessionID != "S-300" {
		t.Errorf("ExternalSessionID = %q, want backfilled S-300", ev.ExternalSessionID)
	}
	found, err := stores.Events.FindByExternalSessionID(ctx, "S-300")
	if err != nil {
		t.Fatalf("FindByExternalSessionID() error = %v", err)
	}
	if found == nil || found.ID != existing.ID {
		t.Error("backfilled external id was not persisted")
	}
}

func TestEventResolver_NoMatchAcrossDates(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemory().Stores()
	existing := &importer.Event{
		ID:       uuid.New(),
		Title:    "Careers in Nursing",
		Kind:     importer.EventKindVirtualSession,
		Status:   importer.StatusConfirmed,
		StartsAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := stores.Events.Create(ctx, existing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resolver := importer.NewEventResolver(stores.Events, 0)
	batch := importer.StartBatch("report.csv", importer.KindSessionReport, "")

	ev, res, err := resolver.ResolveOrCreate(ctx, importer.EventInput{
		Title:    "Careers in Nursing",
		StartsAt: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}, batch)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	if res != importer.EventCreated {
		t.Errorf("resolution = %q, want created for a different date", res)
	}
	if ev.ID == existing.ID {
		t.Error("a session on another date must be a distinct event")
	}
}
