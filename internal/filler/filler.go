// Package filler drives third-party application forms. Each provider gets its
// own SubmissionStrategy so DOM breakage is isolated and attributable; the
// Filler picks the first strategy that claims a posting and records a
// per-posting outcome without retrying inside the run.
package filler

import (
	"context"
	"fmt"
	"log"

	"jobpilot/apply-service/internal/model"
)

// SubmissionStrategy submits one application form for one posting.
// Implementations are registered per provider; failures stay local to the
// strategy and never abort the batch.
type SubmissionStrategy interface {
	// CanHandle reports whether this strategy knows the posting's apply page.
	CanHandle(posting *model.JobPosting) bool
	// Submit fills and submits the form from the profile's details.
	Submit(ctx context.Context, posting *model.JobPosting, profile *model.ApplicantProfile) error
}

// Outcome classifies one application attempt.
type Outcome string

const (
	OutcomeApplied        Outcome = "APPLIED"
	OutcomeFailed         Outcome = "FAILED"
	OutcomeSkippedMissing Outcome = "SKIPPED_MISSING_DETAILS"
)

// Result is the per-posting verdict handed back to the pipeline.
type Result struct {
	Posting       model.JobPosting
	Outcome       Outcome
	MissingFields []string // set when Outcome is SKIPPED_MISSING_DETAILS
	Err           error    // set when Outcome is FAILED
}

// Status maps the outcome onto the persisted application status.
func (r Result) Status() model.ApplicationStatus {
	switch r.Outcome {
	case OutcomeApplied:
		return model.StatusApplied
	case OutcomeSkippedMissing:
		return model.StatusSkippedMissing
	default:
		return model.StatusFailed
	}
}

// Filler routes postings to submission strategies.
type Filler struct {
	strategies []SubmissionStrategy
}

// New builds a Filler over the given strategies, consulted in order.
func New(strategies ...SubmissionStrategy) *Filler {
	return &Filler{strategies: strategies}
}

// Apply attempts one application. Required-field policy: a posting flagged
// RequiresDocs with an incomplete profile is skipped without touching the
// browser — the caller requests the missing details by email instead of
// partially submitting. Any strategy error is caught and reported as FAILED;
// there is no retry within the same run.
func (f *Filler) Apply(ctx context.Context, posting *model.JobPosting, profile *model.ApplicantProfile) Result {
	if posting.RequiresDocs {
		if missing := profile.MissingDetails(); len(missing) > 0 {
			return Result{Posting: *posting, Outcome: OutcomeSkippedMissing, MissingFields: missing}
		}
	}

	strategy := f.strategyFor(posting)
	if strategy == nil {
		return Result{
			Posting: *posting,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("no submission strategy for source %s", posting.Source),
		}
	}

	if err := strategy.Submit(ctx, posting, profile); err != nil {
		log.Printf("[filler] Submit failed for %s (%s): %v", posting.ExternalID, posting.Source, err)
		return Result{Posting: *posting, Outcome: OutcomeFailed, Err: err}
	}

	return Result{Posting: *posting, Outcome: OutcomeApplied}
}

func (f *Filler) strategyFor(posting *model.JobPosting) SubmissionStrategy {
	for _, s := range f.strategies {
		if s.CanHandle(posting) {
			return s
		}
	}
	return nil
}
