// apply-service — recurring auto-apply worker.
//
// Every tick it loads verified users, gates them on eligibility and daily
// quota, fetches candidate postings (cache-first, mock fallback), drives a
// headless browser through each apply form, records the outcomes, and sends
// one summary email per user. Exposes read-only HTTP endpoints for the rest
// of the platform: /health, /postings/recent, /runs/recent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jobpilot/apply-service/internal/config"
	"jobpilot/apply-service/internal/db"
	"jobpilot/apply-service/internal/filler"
	"jobpilot/apply-service/internal/notify"
	"jobpilot/apply-service/internal/retry"
	"jobpilot/apply-service/internal/scheduler"
	"jobpilot/apply-service/internal/source"
	"jobpilot/apply-service/internal/store"
	"jobpilot/apply-service/internal/worker"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		log.Println("[apply-service] No .env file — using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[apply-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ──────────────────────────────────────────────────────────
	log.Println("[apply-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[apply-service] PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("[apply-service] Schema: %v", err)
	}
	log.Println("[apply-service] PostgreSQL connected ✓")

	// ── Redis ───────────────────────────────────────────────────────────────
	log.Println("[apply-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[apply-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[apply-service] Redis connected ✓")

	// ── Pipeline ────────────────────────────────────────────────────────────
	jobStore := store.NewJobStore(pool, rdb)
	userStore := store.NewUserStore(pool)
	runStore := store.NewRunStore(pool)

	// Provider rate-limit policy: 10s, 20s, 40s then degrade to mock.
	policy := retry.Policy{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Second,
		MaxDelay:    40 * time.Second,
		Jitter:      2 * time.Second,
	}
	registry := source.NewRegistry(policy,
		source.NewAdzunaProvider(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry),
		source.NewRemotiveProvider(),
	)

	fill := filler.New(
		filler.MockStrategy{},
		filler.NewChromeStrategy(),
	)

	notifier, err := notify.New(cfg)
	if err != nil {
		log.Fatalf("[apply-service] Notifier: %v", err)
	}
	if cfg.SMSEnabled() {
		log.Println("[apply-service] SMS notifications enabled")
	}

	pipeline := worker.New(userStore, jobStore, registry, fill, notifier,
		time.Duration(cfg.FeedMaxAgeHours)*time.Hour)

	sched := scheduler.New(userStore, runStore, jobStore, pipeline,
		cfg.ApplyIntervalMinutes,
		time.Duration(cfg.UserDelaySeconds)*time.Second)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[apply-service] Scheduler: %v", err)
	}

	// ── HTTP server ─────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/postings/recent", recentPostingsHandler(jobStore))
	mux.HandleFunc("/runs/recent", recentRunsHandler(runStore))
	mux.HandleFunc("GET /users/{id}/applications", userApplicationsHandler(jobStore))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[apply-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[apply-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[apply-service] Shutting down…")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[apply-service] Shutdown error: %v", err)
	}
	log.Println("[apply-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "apply-service",
		"version": version,
	})
}

// recentPostingsHandler serves the user-facing "recent jobs" feed.
func recentPostingsHandler(jobs *store.JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postings, err := jobs.RecentPostings(r.Context(), 50)
		if err != nil {
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(postings)
	}
}

// userApplicationsHandler serves a user's applied-job records for
// dashboards and exports.
func userApplicationsHandler(jobs *store.JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apps, err := jobs.AppliedJobs(r.Context(), r.PathValue("id"), 100)
		if err != nil {
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(apps)
	}
}

// recentRunsHandler serves the per-run audit log for dashboards.
func recentRunsHandler(runs *store.RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := runs.Recent(r.Context(), 20)
		if err != nil {
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}
