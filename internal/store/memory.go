// Package store provides the storage backends behind the importer's
// store interfaces: an in-memory implementation for tests and local
// runs, and a Postgres implementation for production.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

// Memory is an in-process implementation of every importer store. All
// methods return copies, so mutations only take effect through Update.
// Safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	events     []*importer.Event
	teachers   []*importer.Teacher
	volunteers []*importer.Volunteer
	batches    []*importer.ImportBatch
	unmatched  []*importer.UnmatchedRecord

	eventTeachers   map[uuid.UUID]map[uuid.UUID]bool
	eventVolunteers map[uuid.UUID]map[uuid.UUID]bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		eventTeachers:   make(map[uuid.UUID]map[uuid.UUID]bool),
		eventVolunteers: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// Stores exposes the backend through the importer's store interfaces.
func (m *Memory) Stores() importer.Store {
	return importer.Store{
		Events:     (*memoryEvents)(m),
		Teachers:   (*memoryTeachers)(m),
		Volunteers: (*memoryVolunteers)(m),
		Batches:    (*memoryBatches)(m),
		Unmatched:  (*memoryUnmatched)(m),
	}
}

type memoryEvents Memory

func (m *memoryEvents) FindByExternalSessionID(_ context.Context, externalID string) (*importer.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ExternalSessionID != "" && ev.ExternalSessionID == externalID {
			return copyEvent(ev), nil
		}
	}
	return nil, nil
}

func (m *memoryEvents) FindByTitleAndDate(_ context.Context, title string, date time.Time, kind importer.EventKind) (*importer.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := date.UTC().Format("2006-01-02")
	for _, ev := range m.events {
		if ev.Kind != kind {
			continue
		}
		if !strings.EqualFold(ev.Title, title) {
			continue
		}
		if ev.StartsAt.UTC().Format("2006-01-02") == day {
			return copyEvent(ev), nil
		}
	}
	return nil, nil
}

func (m *memoryEvents) Create(_ context.Context, ev *importer.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ExternalSessionID != "" {
		for _, existing := range m.events {
			if existing.ExternalSessionID == ev.ExternalSessionID {
				return fmt.Errorf("event with external session id %q already exists", ev.ExternalSessionID)
			}
		}
	}
	m.events = append(m.events, copyEvent(ev))
	return nil
}

func (m *memoryEvents) Update(_ context.Context, ev *importer.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.events {
		if existing.ID == ev.ID {
			m.events[i] = copyEvent(ev)
			return nil
		}
	}
	return fmt.Errorf("event %s not found", ev.ID)
}

func (m *memoryEvents) LinkTeacher(_ context.Context, eventID, teacherID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventTeachers[eventID] == nil {
		m.eventTeachers[eventID] = make(map[uuid.UUID]bool)
	}
	m.eventTeachers[eventID][teacherID] = true
	return nil
}

func (m *memoryEvents) LinkVolunteer(_ context.Context, eventID, volunteerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventVolunteers[eventID] == nil {
		m.eventVolunteers[eventID] = make(map[uuid.UUID]bool)
	}
	m.eventVolunteers[eventID][volunteerID] = true
	return nil
}

// LinkedTeachers reports the teacher ids linked to an event, for tests.
func (m *Memory) LinkedTeachers(eventID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for id := range m.eventTeachers[eventID] {
		out = append(out, id)
	}
	return out
}

// LinkedVolunteers reports the volunteer ids linked to an event, for
// tests.
func (m *Memory) LinkedVolunteers(eventID uuid.UUID) []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for id := range m.eventVolunteers[eventID] {
		out = append(out, id)
	}
	return out
}

type memoryTeachers Memory

func (m *memoryTeachers) FindByExternalUserID(_ context.Context, externalID string) (*importer.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.ExternalUserID != "" && t.ExternalUserID == externalID {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryTeachers) FindByName(_ context.Context, name string) (*importer.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if strings.EqualFold(t.Name, name) {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryTeachers) Create(_ context.Context, t *importer.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.teachers = append(m.teachers, &c)
	return nil
}

func (m *memoryTeachers) Update(_ context.Context, t *importer.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.teachers {
		if existing.ID == t.ID {
			c := *t
			m.teachers[i] = &c
			return nil
		}
	}
	return fmt.Errorf("teacher %s not found", t.ID)
}

type memoryVolunteers Memory

func (m *memoryVolunteers) FindByExternalUserID(_ context.Context, externalID string) (*importer.Volunteer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.volunteers {
		if v.ExternalUserID != "" && v.ExternalUserID == externalID {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryVolunteers) FindByEmail(_ context.Context, email string) (*importer.Volunteer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.volunteers {
		if v.Email != "" && importer.NormalizeEmail(v.Email) == email {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryVolunteers) FindByName(_ context.Context, firstName, lastName string) (*importer.Volunteer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.volunteers {
		if strings.EqualFold(v.FirstName, firstName) && strings.EqualFold(v.LastName, lastName) {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryVolunteers) Create(_ context.Context, v *importer.Volunteer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *v
	m.volunteers = append(m.volunteers, &c)
	return nil
}

func (m *memoryVolunteers) Update(_ context.Context, v *importer.Volunteer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.volunteers {
		if existing.ID == v.ID {
			c := *v
			m.volunteers[i] = &c
			return nil
		}
	}
	return fmt.Errorf("volunteer %s not found", v.ID)
}

type memoryBatches Memory

func (m *memoryBatches) Create(_ context.Context, b *importer.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, copyBatch(b))
	return nil
}

func (m *memoryBatches) Update(_ context.Context, b *importer.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.batches {
		if existing.ID == b.ID {
			m.batches[i] = copyBatch(b)
			return nil
		}
	}
	return fmt.Errorf("import batch %s not found", b.ID)
}

func (m *memoryBatches) Get(_ context.Context, id uuid.UUID) (*importer.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == id {
			return copyBatch(b), nil
		}
	}
	return nil, nil
}

func (m *memoryBatches) List(_ context.Context) ([]*importer.ImportBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*importer.ImportBatch, 0, len(m.batches))
	for i := len(m.batches) - 1; i >= 0; i-- {
		out = append(out, copyBatch(m.batches[i]))
	}
	return out, nil
}

type memoryUnmatched Memory

func (m *memoryUnmatched) Create(_ context.Context, rec *importer.UnmatchedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmatched = append(m.unmatched, copyUnmatched(rec))
	return nil
}

func (m *memoryUnmatched) Update(_ context.Context, rec *importer.UnmatchedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.unmatched {
		if existing.ID == rec.ID {
			m.unmatched[i] = copyUnmatched(rec)
			return nil
		}
	}
	return fmt.Errorf("unmatched record %s not found", rec.ID)
}

func (m *memoryUnmatched) Get(_ context.Context, id uuid.UUID) (*importer.UnmatchedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.unmatched {
		if rec.ID == id {
			return copyUnmatched(rec), nil
		}
	}
	return nil, nil
}

func (m *memoryUnmatched) FindPending(_ context.Context, kind importer.UnmatchedKind, externalID, name, email string) (*importer.UnmatchedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.unmatched {
		if rec.Status != importer.ResolutionPending || rec.Kind != kind {
			continue
		}
		if rec.ExternalID == externalID && strings.EqualFold(rec.Name, name) && rec.Email == email {
			return copyUnmatched(rec), nil
		}
	}
	return nil, nil
}

func (m *memoryUnmatched) List(_ context.Context, filter importer.UnmatchedFilter) ([]*importer.UnmatchedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*importer.UnmatchedRecord
	for _, rec := range m.unmatched {
		if filter.BatchID != nil && rec.BatchID != *filter.BatchID {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, copyUnmatched(rec))
	}
	return out, nil
}

func copyEvent(ev *importer.Event) *importer.Event {
	c := *ev
	return &c
}

func copyBatch(b *importer.ImportBatch) *importer.ImportBatch {
	c := *b
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	c.Errors = append([]string(nil), b.Errors...)
	return &c
}

func copyUnmatched(rec *importer.UnmatchedRecord) *importer.UnmatchedRecord {
	c := *rec
	c.RawRow = rec.RawRow.Clone()
	if rec.ResolvedAt != nil {
		t := *rec.ResolvedAt
		c.ResolvedAt = &t
	}
	c.ResolvedTeacherID = copyUUID(rec.ResolvedTeacherID)
	c.ResolvedVolunteerID = copyUUID(rec.ResolvedVolunteerID)
	c.ResolvedEventID = copyUUID(rec.ResolvedEventID)
	return &c
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
