package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so restarting the
// service against an existing database is safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email        TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL DEFAULT '',
		phone        TEXT NOT NULL DEFAULT '',
		tier         TEXT NOT NULL DEFAULT 'TRIAL',
		verified     BOOLEAN NOT NULL DEFAULT false,
		resume_url   TEXT NOT NULL DEFAULT '',
		technology   TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL DEFAULT '',
		companies    TEXT[] NOT NULL DEFAULT '{}',
		notify_sms   BOOLEAN NOT NULL DEFAULT false,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS applicant_profiles (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name         TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL DEFAULT '',
		phone        TEXT NOT NULL DEFAULT '',
		resume_url   TEXT NOT NULL DEFAULT '',
		technology   TEXT NOT NULL DEFAULT '',
		address      TEXT NOT NULL DEFAULT '',
		linkedin     TEXT NOT NULL DEFAULT '',
		github       TEXT NOT NULL DEFAULT '',
		portfolio    TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS job_postings (
		external_id   TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		company       TEXT NOT NULL,
		location      TEXT NOT NULL DEFAULT '',
		url           TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL,
		requires_docs BOOLEAN NOT NULL DEFAULT false,
		fetched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS applications (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		profile_id  TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'APPLIED',
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, external_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_applications_user_day
		ON applications (user_id, applied_at)`,

	`CREATE TABLE IF NOT EXISTS worker_runs (
		id              UUID PRIMARY KEY,
		started_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at     TIMESTAMPTZ,
		users_processed INT NOT NULL DEFAULT 0,
		users_skipped   INT NOT NULL DEFAULT 0,
		applied         INT NOT NULL DEFAULT 0,
		failed          INT NOT NULL DEFAULT 0,
		skipped         INT NOT NULL DEFAULT 0,
		note            TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates any missing tables. Called once from main before the
// scheduler starts.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
