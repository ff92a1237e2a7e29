// Package postgres provides Postgres-backed persistence for workflow
// instances and the durable step log.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitepack/sitepack/internal/workflow"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements workflow.InstanceStore and workflow.StepLog on Postgres.
type Store struct {
	pool dbPool
}

// NewStore creates a Postgres-backed store using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS workflow_instances (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	sitemap_url  TEXT NOT NULL,
	error_text   TEXT NOT NULL DEFAULT '',
	download_url TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS workflow_steps (
	instance_id  TEXT NOT NULL,
	step_name    TEXT NOT NULL,
	result       JSONB NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (instance_id, step_name)
);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateInstance inserts a new instance row.
func (s *Store) CreateInstance(ctx context.Context, inst workflow.Instance) error {
	query := `
INSERT INTO workflow_instances (id, status, sitemap_url, submitted_at)
VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, inst.ID, string(inst.Status), inst.Payload.SitemapURL, inst.Submitted); err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// UpdateInstanceStatus updates status, error text, and download URL. The
// started/finished timestamps are derived from the status transition.
func (s *Store) UpdateInstanceStatus(
	ctx context.Context,
	id string,
	status workflow.Status,
	errText string,
	downloadURL string,
) error {
	query := `
UPDATE workflow_instances
SET status = $2,
	error_text = $3,
	download_url = CASE WHEN $4 <> '' THEN $4 ELSE download_url END,
	started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN $5 ELSE started_at END,
	finished_at = CASE WHEN $2 IN ('complete', 'errored') THEN $5 ELSE finished_at END
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), errText, downloadURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update instance status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workflow.ErrInstanceNotFound
	}
	return nil
}

// GetInstance fetches an instance by ID.
func (s *Store) GetInstance(ctx context.Context, id string) (workflow.Instance, error) {
	query := `
SELECT id, status, sitemap_url, error_text, download_url, submitted_at, started_at, finished_at
FROM workflow_instances
WHERE id = $1`
	var (
		inst     workflow.Instance
		status   string
		started  *time.Time
		finished *time.Time
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&inst.ID,
		&status,
		&inst.Payload.SitemapURL,
		&inst.ErrorText,
		&inst.DownloadURL,
		&inst.Submitted,
		&started,
		&finished,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return workflow.Instance{}, workflow.ErrInstanceNotFound
	}
	if err != nil {
		return workflow.Instance{}, fmt.Errorf("select instance: %w", err)
	}
	inst.Status = workflow.Status(status)
	inst.Started = started
	inst.Finished = finished
	return inst, nil
}

// PutStepResult commits a step result. A conflicting commit for the same
// (instance, step) key is discarded, keeping the log replay-safe.
func (s *Store) PutStepResult(ctx context.Context, instanceID, stepName string, result []byte) error {
	query := `
INSERT INTO workflow_steps (instance_id, step_name, result)
VALUES ($1, $2, $3)
ON CONFLICT (instance_id, step_name) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, instanceID, stepName, result); err != nil {
		return fmt.Errorf("insert step result: %w", err)
	}
	return nil
}

// GetStepResult returns a committed step result, if present.
func (s *Store) GetStepResult(ctx context.Context, instanceID, stepName string) ([]byte, bool, error) {
	query := `
SELECT result
FROM workflow_steps
WHERE instance_id = $1 AND step_name = $2`
	var result []byte
	err := s.pool.QueryRow(ctx, query, instanceID, stepName).Scan(&result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select step result: %w", err)
	}
	return result, true, nil
}
