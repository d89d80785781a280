// Package scheduler wires up the cron job that periodically runs the
// auto-apply pipeline for all verified users.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/worker"
)

// UserSource loads the users a tick iterates over.
type UserSource interface {
	LoadVerified(ctx context.Context) ([]model.User, error)
}

// RunLog is the durable per-run audit trail.
type RunLog interface {
	Begin(ctx context.Context) (string, error)
	Finish(ctx context.Context, summary model.RunSummary) error
}

// EventPublisher announces finished runs to the rest of the platform.
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, summary model.RunSummary)
}

// Pipeline is the per-user worker.
type Pipeline interface {
	ProcessUser(ctx context.Context, u *model.User) (worker.Counters, error)
}

// Scheduler wraps robfig/cron and manages the apply loop. The interval, the
// between-user delay and the sleep function are injected so tests drive a
// single tick deterministically.
type Scheduler struct {
	cron      *cron.Cron
	users     UserSource
	runs      RunLog
	events    EventPublisher
	pipeline  Pipeline
	spec      string // cron spec, e.g. "@every 30m"
	userDelay time.Duration

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Scheduler that fires every intervalMinutes minutes and pauses
// userDelay between users to throttle provider load.
func New(users UserSource, runs RunLog, events EventPublisher, pipeline Pipeline, intervalMinutes int, userDelay time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		users:     users,
		runs:      runs,
		events:    events,
		pipeline:  pipeline,
		spec:      fmt.Sprintf("@every %dm", intervalMinutes),
		userDelay: userDelay,
		sleep:     sleepCtx,
	}
}

// Start registers the job and starts the scheduler. Also runs one tick
// immediately so a fresh deployment applies without waiting for the interval.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.RunOnce(ctx)

	return nil
}

// Stop shuts the scheduler down and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

// RunOnce executes a single tick: open the audit row, iterate users
// sequentially with the configured delay, close the audit row and publish the
// summary. A persistence failure loading users aborts the tick cleanly — the
// next tick retries.
func (s *Scheduler) RunOnce(ctx context.Context) {
	log.Println("[scheduler] Apply cycle started")
	started := time.Now().UTC()

	runID, err := s.runs.Begin(ctx)
	if err != nil {
		log.Printf("[scheduler] Audit begin error: %v — aborting tick", err)
		return
	}

	summary := model.RunSummary{RunID: runID, StartedAt: started}

	users, err := s.users.LoadVerified(ctx)
	if err != nil {
		log.Printf("[scheduler] LoadVerified error: %v — aborting tick", err)
		summary.Note = fmt.Sprintf("aborted: %v", err)
		s.finish(ctx, summary)
		return
	}

	if len(users) == 0 {
		log.Println("[scheduler] No verified users — nothing to apply")
		s.finish(ctx, summary)
		return
	}

	log.Printf("[scheduler] Running pipeline for %d user(s)", len(users))
	for i := range users {
		if ctx.Err() != nil {
			summary.Note = "interrupted: shutdown"
			break
		}

		counters, err := s.pipeline.ProcessUser(ctx, &users[i])
		if err != nil {
			log.Printf("[scheduler] Pipeline error for user %s: %v", users[i].ID, err)
			summary.UsersSkipped++
		} else {
			summary.UsersProcessed++
		}
		summary.Applied += counters.Applied
		summary.Failed += counters.Failed
		summary.Skipped += counters.Skipped

		if i < len(users)-1 {
			s.sleep(ctx, s.userDelay)
		}
	}

	s.finish(ctx, summary)
	log.Printf("[scheduler] Apply cycle complete — applied=%d failed=%d skipped=%d",
		summary.Applied, summary.Failed, summary.Skipped)
}

func (s *Scheduler) finish(ctx context.Context, summary model.RunSummary) {
	summary.FinishedAt = time.Now().UTC()
	if err := s.runs.Finish(ctx, summary); err != nil {
		log.Printf("[scheduler] Audit finish error: %v", err)
	}
	s.events.PublishRunEvent(ctx, summary)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
