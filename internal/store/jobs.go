// Package store implements persistence for postings, users, applications and
// the per-run audit log on PostgreSQL, with Redis carrying feed-freshness
// markers and run events.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobpilot/apply-service/internal/model"
)

// runEventChannel is the Redis pub/sub channel other services subscribe to
// for apply-run summaries.
const runEventChannel = "EVENT_APPLY_RUN"

// JobStore persists job postings and application records. The applications
// table is the single source of truth for dedup and daily counts.
type JobStore struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewJobStore returns a configured JobStore.
func NewJobStore(pool *pgxpool.Pool, rdb *redis.Client) *JobStore {
	return &JobStore{pool: pool, rdb: rdb}
}

// ─── Postings ────────────────────────────────────────────────────────────────

// Upsert persists or refreshes a posting by its provider-assigned identifier.
// Last write wins: two fetches of the same external_id in one run collapse to
// a single row carrying the most recent description. Postings with an unknown
// source are rejected — the source column only ever holds known enum values.
func (s *JobStore) Upsert(ctx context.Context, p model.JobPosting) error {
	if _, err := model.ParseSource(string(p.Source)); err != nil {
		return fmt.Errorf("upsert posting %s: %w", p.ExternalID, err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_postings
		   (external_id, title, company, location, url, description, source, requires_docs, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (external_id) DO UPDATE SET
		   title         = EXCLUDED.title,
		   company       = EXCLUDED.company,
		   location      = EXCLUDED.location,
		   url           = EXCLUDED.url,
		   description   = EXCLUDED.description,
		   source        = EXCLUDED.source,
		   requires_docs = EXCLUDED.requires_docs,
		   fetched_at    = EXCLUDED.fetched_at`,
		p.ExternalID, p.Title, p.Company, p.Location, p.URL,
		p.Description, string(p.Source), p.RequiresDocs, p.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert posting %s: %w", p.ExternalID, err)
	}
	return nil
}

// RecentByCompanies returns postings for any of the given companies fetched
// within maxAge, newest first. Used to serve a fresh feed without re-querying
// providers.
func (s *JobStore) RecentByCompanies(ctx context.Context, companies []string, maxAge time.Duration) ([]model.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT external_id, title, company, location, url, description, source, requires_docs, fetched_at
		 FROM job_postings
		 WHERE company ILIKE ANY($1) AND fetched_at > NOW() - ($2 * interval '1 second')
		 ORDER BY fetched_at DESC`,
		likePatterns(companies), int64(maxAge.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent postings: %w", err)
	}
	defer rows.Close()

	var postings []model.JobPosting
	for rows.Next() {
		var p model.JobPosting
		var src string
		if err := rows.Scan(
			&p.ExternalID, &p.Title, &p.Company, &p.Location, &p.URL,
			&p.Description, &src, &p.RequiresDocs, &p.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.Source = model.Source(src)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// RecentPostings returns the newest n postings regardless of company — the
// user-facing "recent jobs" feed.
func (s *JobStore) RecentPostings(ctx context.Context, n int) ([]model.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT external_id, title, company, location, url, description, source, requires_docs, fetched_at
		 FROM job_postings
		 ORDER BY fetched_at DESC
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent postings: %w", err)
	}
	defer rows.Close()

	var postings []model.JobPosting
	for rows.Next() {
		var p model.JobPosting
		var src string
		if err := rows.Scan(
			&p.ExternalID, &p.Title, &p.Company, &p.Location, &p.URL,
			&p.Description, &src, &p.RequiresDocs, &p.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.Source = model.Source(src)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// ─── Freshness markers ───────────────────────────────────────────────────────

// MarkFetched records in Redis that providers were queried for this
// (technology, location) just now, expiring after maxAge.
func (s *JobStore) MarkFetched(ctx context.Context, technology, location string, maxAge time.Duration) {
	if err := s.rdb.Set(ctx, fetchKey(technology, location), time.Now().UTC().Format(time.RFC3339), maxAge).Err(); err != nil {
		slog.Warn("set freshness marker failed", "technology", technology, "err", err)
	}
}

// FetchedRecently reports whether providers were already queried for this
// (technology, location) inside the freshness window. Redis errors degrade to
// false so a flaky cache forces a live fetch rather than starving the feed.
func (s *JobStore) FetchedRecently(ctx context.Context, technology, location string) bool {
	n, err := s.rdb.Exists(ctx, fetchKey(technology, location)).Result()
	if err != nil {
		slog.Warn("freshness lookup failed", "technology", technology, "err", err)
		return false
	}
	return n > 0
}

func fetchKey(technology, location string) string {
	h := sha256.Sum256([]byte(strings.ToLower(technology) + "|" + strings.ToLower(location)))
	return "applyfeed:fetched:" + hex.EncodeToString(h[:8])
}

// ─── Applications ────────────────────────────────────────────────────────────

// HasApplied reports whether the user already has an APPLIED record for this
// posting. Single lookup against applications — the authoritative list.
func (s *JobStore) HasApplied(ctx context.Context, userID, externalID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM applications
		   WHERE user_id = $1 AND external_id = $2 AND status = 'APPLIED'
		 )`,
		userID, externalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("hasApplied: %w", err)
	}
	return exists, nil
}

// RecordApplication inserts an application record. The (user_id, external_id)
// unique constraint makes re-runs idempotent: once a pair is APPLIED it never
// changes again, while a FAILED record may upgrade when a later run succeeds.
// The bool reports whether a row was written.
func (s *JobStore) RecordApplication(ctx context.Context, a model.Application) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO applications (user_id, profile_id, external_id, status, applied_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, external_id) DO UPDATE SET
		   profile_id = EXCLUDED.profile_id,
		   status     = EXCLUDED.status,
		   applied_at = EXCLUDED.applied_at
		 WHERE applications.status <> 'APPLIED'`,
		a.UserID, a.ProfileID, a.ExternalID, string(a.Status), a.AppliedAt,
	)
	if err != nil {
		return false, fmt.Errorf("record application %s/%s: %w", a.UserID, a.ExternalID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountAppliedToday returns how many APPLIED records the user accrued since
// midnight UTC. Feeds the quota gate.
func (s *JobStore) CountAppliedToday(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications
		 WHERE user_id = $1 AND status = 'APPLIED'
		   AND applied_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countAppliedToday: %w", err)
	}
	return n, nil
}

// AppliedJobs returns the user's APPLIED records, newest first, for the
// dashboard/export surface.
func (s *JobStore) AppliedJobs(ctx context.Context, userID string, n int) ([]model.Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.profile_id, a.external_id, a.status, a.applied_at,
		        COALESCE(jp.title, ''), COALESCE(jp.company, '')
		 FROM applications a
		 LEFT JOIN job_postings jp ON jp.external_id = a.external_id
		 WHERE a.user_id = $1 AND a.status = 'APPLIED'
		 ORDER BY a.applied_at DESC
		 LIMIT $2`,
		userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query applied jobs: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		var a model.Application
		var status string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProfileID, &a.ExternalID, &status, &a.AppliedAt, &a.Title, &a.Company); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		a.Status = model.ApplicationStatus(status)
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ─── Run events ──────────────────────────────────────────────────────────────

// PublishRunEvent pushes the run summary onto EVENT_APPLY_RUN (non-fatal).
func (s *JobStore) PublishRunEvent(ctx context.Context, summary model.RunSummary) {
	event, _ := json.Marshal(map[string]any{
		"type":    runEventChannel,
		"runId":   summary.RunID,
		"applied": summary.Applied,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
		"users":   summary.UsersProcessed,
	})
	if err := s.rdb.Publish(ctx, runEventChannel, event).Err(); err != nil {
		slog.Warn("publish EVENT_APPLY_RUN failed", "runId", summary.RunID, "err", err)
	}
}

// likePatterns converts company names into ILIKE ANY patterns.
func likePatterns(companies []string) []string {
	patterns := make([]string, 0, len(companies))
	for _, c := range companies {
		if c == "" {
			continue
		}
		patterns = append(patterns, "%"+c+"%")
	}
	return patterns
}
