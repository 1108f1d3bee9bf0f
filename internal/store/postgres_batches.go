package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

type pgBatches struct {
	pool *pgxpool.Pool
}

const batchColumns = `id, filename, kind, initiator_id, started_at, completed_at,
	total_rows, processed_rows, skipped_rows, created_events, updated_events,
	matched_teachers, created_teachers, matched_volunteers, created_volunteers,
	unmatched_count, error_count, errors`

func (s *pgBatches) Create(ctx context.Context, b *importer.ImportBatch) error {
	errs, err := json.Marshal(b.Errors)
	if err != nil {
		return fmt.Errorf("encode batch errors: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_batches (`+batchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		toPgUUID(b.ID), b.Filename, string(b.Kind), toPgText(b.InitiatorID),
		b.StartedAt, b.CompletedAt, b.TotalRows, b.ProcessedRows, b.SkippedRows,
		b.CreatedEvents, b.UpdatedEvents, b.MatchedTeachers, b.CreatedTeachers,
		b.MatchedVolunteers, b.CreatedVolunteers, b.UnmatchedCount, b.ErrorCount, errs)
	return err
}

func (s *pgBatches) Update(ctx context.Context, b *importer.ImportBatch) error {
	errs, err := json.Marshal(b.Errors)
	if err != nil {
		return fmt.Errorf("encode batch errors: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE import_batches SET
			completed_at = $2, total_rows = $3, processed_rows = $4, skipped_rows = $5,
			created_events = $6, updated_events = $7, matched_teachers = $8,
			created_teachers = $9, matched_volunteers = $10, created_volunteers = $11,
			unmatched_count = $12, error_count = $13, errors = $14
		 WHERE id = $1`,
		toPgUUID(b.ID), b.CompletedAt, b.TotalRows, b.ProcessedRows, b.SkippedRows,
		b.CreatedEvents, b.UpdatedEvents, b.MatchedTeachers, b.CreatedTeachers,
		b.MatchedVolunteers, b.CreatedVolunteers, b.UnmatchedCount, b.ErrorCount, errs)
	return err
}

func (s *pgBatches) Get(ctx context.Context, id uuid.UUID) (*importer.ImportBatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM import_batches WHERE id = $1`,
		toPgUUID(id))
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *pgBatches) List(ctx context.Context) ([]*importer.ImportBatch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM import_batches ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*importer.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*importer.ImportBatch, error) {
	var (
		b           importer.ImportBatch
		id          pgtype.UUID
		initiatorID pgtype.Text
		kind        string
		errs        []byte
	)
	err := row.Scan(&id, &b.Filename, &kind, &initiatorID, &b.StartedAt,
		&b.CompletedAt, &b.TotalRows, &b.ProcessedRows, &b.SkippedRows,
		&b.CreatedEvents, &b.UpdatedEvents, &b.MatchedTeachers, &b.CreatedTeachers,
		&b.MatchedVolunteers, &b.CreatedVolunteers, &b.UnmatchedCount,
		&b.ErrorCount, &errs)
	if err != nil {
		return nil, err
	}
	b.ID = fromPgUUID(id)
	b.Kind = importer.ImportKind(kind)
	b.InitiatorID = fromPgText(initiatorID)
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &b.Errors); err != nil {
			return nil, fmt.Errorf("decode batch errors: %w", err)
		}
	}
	return &b, nil
}
