package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

type pgTeachers struct {
	pool *pgxpool.Pool
}

const teacherColumns = `id, external_user_id, name, school`

func (s *pgTeachers) FindByExternalUserID(ctx context.Context, externalID string) (*importer.Teacher, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE external_user_id = $1 LIMIT 1`,
		externalID)
	return scanTeacher(row)
}

func (s *pgTeachers) FindByName(ctx context.Context, name string) (*importer.Teacher, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE lower(name) = lower($1) LIMIT 1`,
		name)
	return scanTeacher(row)
}

func (s *pgTeachers) Create(ctx context.Context, t *importer.Teacher) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO teachers (`+teacherColumns+`) VALUES ($1, $2, $3, $4)`,
		toPgUUID(t.ID), toPgText(t.ExternalUserID), t.Name, toPgText(t.School))
	return err
}

func (s *pgTeachers) Update(ctx context.Context, t *importer.Teacher) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE teachers SET external_user_id = $2, name = $3, school = $4 WHERE id = $1`,
		toPgUUID(t.ID), toPgText(t.ExternalUserID), t.Name, toPgText(t.School))
	return err
}

func scanTeacher(row pgx.Row) (*importer.Teacher, error) {
	var (
		t                importer.Teacher
		id               pgtype.UUID
		externalID, school pgtype.Text
	)
	err := row.Scan(&id, &externalID, &t.Name, &school)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.ID = fromPgUUID(id)
	t.ExternalUserID = fromPgText(externalID)
	t.School = fromPgText(school)
	return &t, nil
}

type pgVolunteers struct {
	pool *pgxpool.Pool
}

const volunteerColumns = `id, external_user_id, first_name, last_name, email, organization`

func (s *pgVolunteers) FindByExternalUserID(ctx context.Context, externalID string) (*importer.Volunteer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+volunteerColumns+` FROM volunteers WHERE external_user_id = $1 LIMIT 1`,
		externalID)
	return scanVolunteer(row)
}

func (s *pgVolunteers) FindByEmail(ctx context.Context, email string) (*importer.Volunteer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+volunteerColumns+` FROM volunteers WHERE lower(email) = lower($1) LIMIT 1`,
		email)
	return scanVolunteer(row)
}

func (s *pgVolunteers) FindByName(ctx context.Context, firstName, lastName string) (*importer.Volunteer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+volunteerColumns+` FROM volunteers
		 WHERE lower(first_name) = lower($1)
		   AND lower(coalesce(last_name, '')) = lower($2)
		 LIMIT 1`,
		firstName, lastName)
	return scanVolunteer(row)
}

func (s *pgVolunteers) Create(ctx context.Context, v *importer.Volunteer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO volunteers (`+volunteerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		toPgUUID(v.ID), toPgText(v.ExternalUserID), v.FirstName,
		toPgText(v.LastName), toPgText(v.Email), toPgText(v.Organization))
	return err
}

func (s *pgVolunteers) Update(ctx context.Context, v *importer.Volunteer) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE volunteers SET
			external_user_id = $2, first_name = $3, last_name = $4,
			email = $5, organization = $6
		 WHERE id = $1`,
		toPgUUID(v.ID), toPgText(v.ExternalUserID), v.FirstName,
		toPgText(v.LastName), toPgText(v.Email), toPgText(v.Organization))
	return err
}

func scanVolunteer(row pgx.Row) (*importer.Volunteer, error) {
	var (
		v                              importer.Volunteer
		id                             pgtype.UUID
		externalID, last, email, org   pgtype.Text
	)
	err := row.Scan(&id, &externalID, &v.FirstName, &last, &email, &org)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.ID = fromPgUUID(id)
	v.ExternalUserID = fromPgText(externalID)
	v.LastName = fromPgText(last)
	v.Email = fromPgText(email)
	v.Organization = fromPgText(org)
	return &v, nil
}
