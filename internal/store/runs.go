package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/apply-service/internal/model"
)

// RunStore is the durable per-run audit log. Every scheduler tick opens a row
// at start and closes it with counters at the end, so operators can see what
// each run did even though the worker has no user-facing error surface.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore returns a configured RunStore.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Begin opens an audit row and returns its run id.
func (s *RunStore) Begin(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO worker_runs (id, started_at) VALUES ($1, NOW())`,
		runID,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// Finish closes the audit row with the run's counters.
func (s *RunStore) Finish(ctx context.Context, summary model.RunSummary) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE worker_runs
		 SET finished_at     = NOW(),
		     users_processed = $2,
		     users_skipped   = $3,
		     applied         = $4,
		     failed          = $5,
		     skipped         = $6,
		     note            = $7
		 WHERE id = $1`,
		summary.RunID, summary.UsersProcessed, summary.UsersSkipped,
		summary.Applied, summary.Failed, summary.Skipped, summary.Note,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", summary.RunID, err)
	}
	return nil
}

// Recent returns the newest n audit rows for the /runs/recent surface.
func (s *RunStore) Recent(ctx context.Context, n int) ([]model.RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, COALESCE(finished_at, started_at),
		        users_processed, users_skipped, applied, failed, skipped, note
		 FROM worker_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var started, finished time.Time
		if err := rows.Scan(
			&r.RunID, &started, &finished,
			&r.UsersProcessed, &r.UsersSkipped, &r.Applied, &r.Failed, &r.Skipped, &r.Note,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = started
		r.FinishedAt = finished
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
