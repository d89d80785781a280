// Package worker runs the per-user auto-apply pipeline: eligibility gate →
// quota → candidate feed (cache-first) → dedup → form submission → records
// and notifications. The scheduler invokes it sequentially per user.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobpilot/apply-service/internal/filler"
	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/quota"
	"jobpilot/apply-service/internal/source"
)

// UserDirectory resolves the profiles to process for a user.
type UserDirectory interface {
	ProfilesFor(ctx context.Context, u *model.User) ([]model.ApplicantProfile, error)
}

// JobCache is the posting/application persistence the pipeline depends on.
type JobCache interface {
	Upsert(ctx context.Context, p model.JobPosting) error
	RecentByCompanies(ctx context.Context, companies []string, maxAge time.Duration) ([]model.JobPosting, error)
	FetchedRecently(ctx context.Context, technology, location string) bool
	MarkFetched(ctx context.Context, technology, location string, maxAge time.Duration)
	HasApplied(ctx context.Context, userID, externalID string) (bool, error)
	RecordApplication(ctx context.Context, a model.Application) (bool, error)
	CountAppliedToday(ctx context.Context, userID string) (int, error)
}

// Fetcher is the provider registry: always returns a non-empty batch.
type Fetcher interface {
	FetchAll(ctx context.Context, q source.Query) []model.JobPosting
}

// Applier attempts one form submission and classifies the outcome.
type Applier interface {
	Apply(ctx context.Context, posting *model.JobPosting, profile *model.ApplicantProfile) filler.Result
}

// Notifier dispatches the run summary and missing-details requests.
type Notifier interface {
	SendRunSummary(ctx context.Context, user *model.User, applied []model.Application)
	SendMissingDetailsRequest(ctx context.Context, user *model.User, profile *model.ApplicantProfile, posting model.JobPosting, missing []string)
}

// Counters aggregates one user's pipeline outcomes.
type Counters struct {
	Applied int
	Failed  int
	Skipped int // postings skipped for missing profile details
}

// Worker wires the pipeline stages together.
type Worker struct {
	users      UserDirectory
	jobs       JobCache
	fetcher    Fetcher
	applier    Applier
	notifier   Notifier
	feedMaxAge time.Duration
}

// New constructs a Worker.
func New(users UserDirectory, jobs JobCache, fetcher Fetcher, applier Applier, notifier Notifier, feedMaxAge time.Duration) *Worker {
	return &Worker{
		users:      users,
		jobs:       jobs,
		fetcher:    fetcher,
		applier:    applier,
		notifier:   notifier,
		feedMaxAge: feedMaxAge,
	}
}

// ProcessUser runs the full pipeline for one user. An ineligible user is
// skipped entirely — no provider calls, no partial processing. A user at
// quota is likewise skipped. One summary email goes out at the end covering
// everything applied across the user's profiles.
func (w *Worker) ProcessUser(ctx context.Context, user *model.User) (Counters, error) {
	var c Counters

	if err := quota.CheckEligibility(user); err != nil {
		log.Printf("[worker] Skipping user %s: %v", user.ID, err)
		return c, nil
	}

	appliedToday, err := w.jobs.CountAppliedToday(ctx, user.ID)
	if err != nil {
		return c, fmt.Errorf("count applied today for %s: %w", user.ID, err)
	}
	remaining := quota.Remaining(user.Tier, appliedToday)
	if remaining == 0 {
		log.Printf("[worker] User %s at daily quota (%d) — nothing to do", user.ID, quota.Limit(user.Tier))
		return c, nil
	}

	profiles, err := w.users.ProfilesFor(ctx, user)
	if err != nil {
		return c, fmt.Errorf("load profiles for %s: %w", user.ID, err)
	}

	candidates, err := w.candidateFeed(ctx, user)
	if err != nil {
		return c, err
	}

	var applied []model.Application
	seen := make(map[string]bool, len(candidates))

	for _, profile := range profiles {
		if remaining == 0 {
			break
		}
		for i := range candidates {
			if remaining == 0 {
				break
			}
			posting := candidates[i]

			// Same provider id fetched twice in one run: one attempt only.
			if seen[posting.ExternalID] {
				continue
			}
			seen[posting.ExternalID] = true

			already, err := w.jobs.HasApplied(ctx, user.ID, posting.ExternalID)
			if err != nil {
				return c, fmt.Errorf("dedup check %s/%s: %w", user.ID, posting.ExternalID, err)
			}
			if already {
				continue
			}

			res := w.applier.Apply(ctx, &posting, &profile)
			switch res.Outcome {
			case filler.OutcomeSkippedMissing:
				c.Skipped++
				w.notifier.SendMissingDetailsRequest(ctx, user, &profile, posting, res.MissingFields)
				continue

			case filler.OutcomeFailed:
				c.Failed++
				record := model.Application{
					UserID:     user.ID,
					ProfileID:  profile.ID,
					ExternalID: posting.ExternalID,
					Status:     model.StatusFailed,
					AppliedAt:  time.Now().UTC(),
				}
				if _, err := w.jobs.RecordApplication(ctx, record); err != nil {
					return c, err
				}
				continue

			case filler.OutcomeApplied:
				record := model.Application{
					UserID:     user.ID,
					ProfileID:  profile.ID,
					ExternalID: posting.ExternalID,
					Title:      posting.Title,
					Company:    posting.Company,
					Status:     model.StatusApplied,
					AppliedAt:  time.Now().UTC(),
				}
				written, err := w.jobs.RecordApplication(ctx, record)
				if err != nil {
					return c, err
				}
				if !written {
					// Lost a race with a concurrent run: already applied.
					continue
				}
				c.Applied++
				remaining--
				applied = append(applied, record)
			}
		}
	}

	w.notifier.SendRunSummary(ctx, user, applied)

	log.Printf("[worker] User %s done — applied=%d failed=%d skipped=%d remaining=%d",
		user.ID, c.Applied, c.Failed, c.Skipped, remaining)
	return c, nil
}

// candidateFeed returns postings for the user's selection, serving from the
// cache while the freshness marker holds and querying providers otherwise.
// Live fetches are upserted so the rest of the platform sees the feed.
func (w *Worker) candidateFeed(ctx context.Context, user *model.User) ([]model.JobPosting, error) {
	if w.jobs.FetchedRecently(ctx, user.Technology, user.Location) {
		cached, err := w.jobs.RecentByCompanies(ctx, user.Companies, w.feedMaxAge)
		if err != nil {
			return nil, fmt.Errorf("cached feed for %s: %w", user.ID, err)
		}
		if len(cached) > 0 {
			return cached, nil
		}
		// Marker present but cache empty (e.g. wiped table): fall through.
	}

	fetched := w.fetcher.FetchAll(ctx, source.Query{
		Technology: user.Technology,
		Location:   user.Location,
		Companies:  user.Companies,
	})
	for _, p := range fetched {
		if err := w.jobs.Upsert(ctx, p); err != nil {
			return nil, err
		}
	}
	w.jobs.MarkFetched(ctx, user.Technology, user.Location, w.feedMaxAge)
	return fetched, nil
}
