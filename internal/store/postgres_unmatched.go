package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

type pgUnmatched struct {
	pool *pgxpool.Pool
}

const unmatchedColumns = `id, batch_id, row_number, raw_row, kind, name, email,
	external_id, school, organization, status, resolved_by, resolved_at, notes,
	resolved_teacher_id, resolved_volunteer_id, resolved_event_id`

func (s *pgUnmatched) Create(ctx context.Context, rec *importer.UnmatchedRecord) error {
	raw, err := json.Marshal(rec.RawRow)
	if err != nil {
		return fmt.Errorf("encode raw row: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO unmatched_records (`+unmatchedColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		toPgUUID(rec.ID), toPgUUID(rec.BatchID), rec.RowNumber, raw, string(rec.Kind),
		toPgText(rec.Name), toPgText(rec.Email), toPgText(rec.ExternalID),
		toPgText(rec.School), toPgText(rec.Organization), string(rec.Status),
		toPgText(rec.ResolvedBy), rec.ResolvedAt, toPgText(rec.Notes),
		toPgUUIDPtr(rec.ResolvedTeacherID), toPgUUIDPtr(rec.ResolvedVolunteerID),
		toPgUUIDPtr(rec.ResolvedEventID))
	return err
}

func (s *pgUnmatched) Update(ctx context.Context, rec *importer.UnmatchedRecord) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE unmatched_records SET
			status = $2, resolved_by = $3, resolved_at = $4, notes = $5,
			resolved_teacher_id = $6, resolved_volunteer_id = $7, resolved_event_id = $8
		 WHERE id = $1`,
		toPgUUID(rec.ID), string(rec.Status), toPgText(rec.ResolvedBy),
		rec.ResolvedAt, toPgText(rec.Notes), toPgUUIDPtr(rec.ResolvedTeacherID),
		toPgUUIDPtr(rec.ResolvedVolunteerID), toPgUUIDPtr(rec.ResolvedEventID))
	return err
}

func (s *pgUnmatched) Get(ctx context.Context, id uuid.UUID) (*importer.UnmatchedRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+unmatchedColumns+` FROM unmatched_records WHERE id = $1`,
		toPgUUID(id))
	rec, err := scanUnmatched(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *pgUnmatched) FindPending(ctx context.Context, kind importer.UnmatchedKind, externalID, name, email string) (*importer.UnmatchedRecord, error) {
	// Empty strings are stored as NULL, so the comparisons must be
	// NULL-safe.
	row := s.pool.QueryRow(ctx,
		`SELECT `+unmatchedColumns+` FROM unmatched_records
		 WHERE status = $1 AND kind = $2
		   AND external_id IS NOT DISTINCT FROM $3
		   AND lower(name) IS NOT DISTINCT FROM lower($4)
		   AND email IS NOT DISTINCT FROM $5
		 ORDER BY row_number LIMIT 1`,
		string(importer.ResolutionPending), string(kind),
		toPgText(externalID), toPgText(name), toPgText(email))
	rec, err := scanUnmatched(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *pgUnmatched) List(ctx context.Context, filter importer.UnmatchedFilter) ([]*importer.UnmatchedRecord, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BatchID != nil {
		args = append(args, toPgUUID(*filter.BatchID))
		conds = append(conds, fmt.Sprintf("batch_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + unmatchedColumns + ` FROM unmatched_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY row_number`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*importer.UnmatchedRecord
	for rows.Next() {
		rec, err := scanUnmatched(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanUnmatched(row pgx.Row) (*importer.UnmatchedRecord, error) {
	var (
		rec                              importer.UnmatchedRecord
		id, batchID                      pgtype.UUID
		name, email, extID, school, org  pgtype.Text
		resolvedBy, notes                pgtype.Text
		teacherID, volunteerID, eventID  pgtype.UUID
		kind, status                     string
		raw                              []byte
	)
	err := row.Scan(&id, &batchID, &rec.RowNumber, &raw, &kind, &name, &email,
		&extID, &school, &org, &status, &resolvedBy, &rec.ResolvedAt, &notes,
		&teacherID, &volunteerID, &eventID)
	if err != nil {
		return nil, err
	}
	rec.ID = fromPgUUID(id)
	rec.BatchID = fromPgUUID(batchID)
	rec.Kind = importer.UnmatchedKind(kind)
	rec.Name = fromPgText(name)
	rec.Email = fromPgText(email)
	rec.ExternalID = fromPgText(extID)
	rec.School = fromPgText(school)
	rec.Organization = fromPgText(org)
	rec.Status = importer.ResolutionStatus(status)
	rec.ResolvedBy = fromPgText(resolvedBy)
	rec.Notes = fromPgText(notes)
	rec.ResolvedTeacherID = fromPgUUIDPtr(teacherID)
	rec.ResolvedVolunteerID = fromPgUUIDPtr(volunteerID)
	rec.ResolvedEventID = fromPgUUIDPtr(eventID)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.RawRow); err != nil {
			return nil, fmt.Errorf("decode raw row: %w", err)
		}
	}
	return &rec, nil
}
