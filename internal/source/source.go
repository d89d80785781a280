// Package source implements job-search provider adapters. Each Provider wraps
// one external board; the Registry fans a query out to every provider and
// falls back to synthetic mock postings when none of them delivers, so the
// pipeline downstream always receives a non-empty list.
package source

import (
	"context"
	"errors"
	"log"
	"strings"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/retry"
)

// ErrRateLimited is returned by an adapter when the provider answers 429.
// It is marked retryable so the registry's policy backs off and re-asks.
var ErrRateLimited = errors.New("provider rate limited")

// Query narrows a provider search to the caller's selection.
type Query struct {
	Technology string
	Location   string
	Companies  []string // only postings from these companies are returned
}

// Provider is one external job board.
type Provider interface {
	Name() model.Source
	Fetch(ctx context.Context, q Query) ([]model.JobPosting, error)
}

// Registry holds the fixed provider list and the shared retry policy.
type Registry struct {
	providers []Provider
	policy    retry.Policy
}

// NewRegistry builds a Registry over the given providers.
func NewRegistry(policy retry.Policy, providers ...Provider) *Registry {
	return &Registry{providers: providers, policy: policy}
}

// FetchAll queries every provider under the retry policy and merges results.
// Provider errors are logged and degrade that provider to nothing; if the
// merged result is empty the registry emits mock postings instead. FetchAll
// never returns an error and never returns an empty list.
func (r *Registry) FetchAll(ctx context.Context, q Query) []model.JobPosting {
	var merged []model.JobPosting

	for _, p := range r.providers {
		var batch []model.JobPosting
		err := r.policy.Do(ctx, func(ctx context.Context) error {
			var ferr error
			batch, ferr = p.Fetch(ctx, q)
			return ferr
		})
		if err != nil {
			log.Printf("[source] %s fetch failed after retries: %v — degrading", p.Name(), err)
			continue
		}
		merged = append(merged, batch...)
	}

	if len(merged) == 0 {
		log.Printf("[source] no live postings for technology=%q — using mock batch", q.Technology)
		return MockPostings(q)
	}
	return merged
}

// matchesCompanies reports whether company is one of the query's targets.
// An empty target list matches everything.
func matchesCompanies(company string, targets []string) bool {
	if len(targets) == 0 {
		return true
	}
	c := strings.ToLower(company)
	for _, t := range targets {
		if t == "" {
			continue
		}
		if strings.Contains(c, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
