package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

type pgEvents struct {
	pool *pgxpool.Pool
}

const eventColumns = `id, external_session_id, title, kind, status, starts_at, ends_at,
	duration_minutes, category, source, registered_count, attended_count`

func (s *pgEvents) FindByExternalSessionID(ctx context.Context, externalID string) (*importer.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE external_session_id = $1`,
		externalID)
	return scanEvent(row)
}

func (s *pgEvents) FindByTitleAndDate(ctx context.Context, title string, date time.Time, kind importer.EventKind) (*importer.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE lower(title) = lower($1)
		   AND kind = $2
		   AND (starts_at AT TIME ZONE 'UTC')::date = $3::date
		 LIMIT 1`,
		title, string(kind), date.UTC())
	return scanEvent(row)
}

func (s *pgEvents) Create(ctx context.Context, ev *importer.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		toPgUUID(ev.ID), toPgText(ev.ExternalSessionID), ev.Title, string(ev.Kind),
		string(ev.Status), ev.StartsAt, ev.EndsAt, ev.DurationMinutes,
		toPgText(ev.Category), toPgText(ev.Source), ev.RegisteredCount, ev.AttendedCount)
	return err
}

func (s *pgEvents) Update(ctx context.Context, ev *importer.Event) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE events SET
			external_session_id = $2, title = $3, kind = $4, status = $5,
			starts_at = $6, ends_at = $7, duration_minutes = $8, category = $9,
			source = $10, registered_count = $11, attended_count = $12
		 WHERE id = $1`,
		toPgUUID(ev.ID), toPgText(ev.ExternalSessionID), ev.Title, string(ev.Kind),
		string(ev.Status), ev.StartsAt, ev.EndsAt, ev.DurationMinutes,
		toPgText(ev.Category), toPgText(ev.Source), ev.RegisteredCount, ev.AttendedCount)
	return err
}

func (s *pgEvents) LinkTeacher(ctx context.Context, eventID, teacherID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO event_teachers (event_id, teacher_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		toPgUUID(eventID), toPgUUID(teacherID))
	return err
}

func (s *pgEvents) LinkVolunteer(ctx context.Context, eventID, volunteerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO event_volunteers (event_id, volunteer_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		toPgUUID(eventID), toPgUUID(volunteerID))
	return err
}

func scanEvent(row pgx.Row) (*importer.Event, error) {
	var (
		ev                           importer.Event
		id                           pgtype.UUID
		externalID, category, source pgtype.Text
		kind, status                 string
	)
	err := row.Scan(&id, &externalID, &ev.Title, &kind, &status, &ev.StartsAt,
		&ev.EndsAt, &ev.DurationMinutes, &category, &source,
		&ev.RegisteredCount, &ev.AttendedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev.ID = fromPgUUID(id)
	ev.ExternalSessionID = fromPgText(externalID)
	ev.Kind = importer.EventKind(kind)
	ev.Status = importer.EventStatus(status)
	ev.Category = fromPgText(category)
	ev.Source = fromPgText(source)
	return &ev, nil
}
