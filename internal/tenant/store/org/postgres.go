package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/sentinel"
)

// MigrationOrganizations is the DDL for the organizations table. Safe to
// execute multiple times; run it at startup as an auto-migration step.
const MigrationOrganizations = `
CREATE TABLE IF NOT EXISTS organizations (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    org_type        TEXT NOT NULL,
    status          TEXT NOT NULL,
    hipaa_compliant BOOLEAN NOT NULL DEFAULT FALSE,
    baa_signed      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_organizations_name_lower
    ON organizations (LOWER(name));
`

// Postgres persists organizations in PostgreSQL via pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the organizations table if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, MigrationOrganizations); err != nil {
		return fmt.Errorf("migrate organizations: %w", err)
	}
	return nil
}

func (s *Postgres) CreateIfNameAvailable(ctx context.Context, o *models.Organization) error {
	const query = `INSERT INTO organizations
    (id, name, org_type, status, hipaa_compliant, baa_signed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.Name, string(o.Type), string(o.Status),
		o.HIPAACompliant, o.BAASigned, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	const query = `SELECT id, name, org_type, status, hipaa_compliant, baa_signed, created_at, updated_at
FROM organizations WHERE id = $1`

	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	const query = `SELECT id, name, org_type, status, hipaa_compliant, baa_signed, created_at, updated_at
FROM organizations WHERE LOWER(name) = LOWER($1)`

	return s.scanOne(s.pool.QueryRow(ctx, query, name))
}

func (s *Postgres) Update(ctx context.Context, o *models.Organization) error {
	const query = `UPDATE organizations
SET name = $2, org_type = $3, status = $4, hipaa_compliant = $5, baa_signed = $6, updated_at = $7
WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		o.ID, o.Name, string(o.Type), string(o.Status),
		o.HIPAACompliant, o.BAASigned, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Organization, error) {
	const query = `SELECT id, name, org_type, status, hipaa_compliant, baa_signed, created_at, updated_at
FROM organizations ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row rowScanner) (*models.Organization, error) {
	o, err := scanOrg(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOrg(row rowScanner) (*models.Organization, error) {
	var (
		o       models.Organization
		orgType string
		status  string
	)
	if err := row.Scan(&o.ID, &o.Name, &orgType, &status,
		&o.HIPAACompliant, &o.BAASigned, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Type = models.OrgType(orgType)
	o.Status = models.OrgStatus(status)
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
