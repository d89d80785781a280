// Package model defines shared data structures for the apply service.
package model

import (
	"fmt"
	"time"
)

// ─── Subscription tiers ──────────────────────────────────────────────────────

// Tier values mirror the subscription_tier enum in PostgreSQL.
type Tier string

const (
	TierTrial     Tier = "TRIAL"
	TierStudent   Tier = "STUDENT"
	TierRecruiter Tier = "RECRUITER"
	TierBusiness  Tier = "BUSINESS"
)

// ParseTier converts a raw string to a Tier, returning an error for
// unknown values.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	switch t {
	case TierTrial, TierStudent, TierRecruiter, TierBusiness:
		return t, nil
	}
	return "", fmt.Errorf("unknown subscription tier %q", s)
}

// ─── Posting sources ─────────────────────────────────────────────────────────

// Source identifies which provider a posting came from.
type Source string

const (
	SourceAdzuna   Source = "ADZUNA"
	SourceRemotive Source = "REMOTIVE"
	SourceMock     Source = "MOCK"
)

// ParseSource converts a raw string to a Source, returning an error for
// unknown values.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	switch src {
	case SourceAdzuna, SourceRemotive, SourceMock:
		return src, nil
	}
	return "", fmt.Errorf("unknown posting source %q", s)
}

// ─── Application status ──────────────────────────────────────────────────────

// ApplicationStatus values mirror the application_status enum in PostgreSQL.
type ApplicationStatus string

const (
	StatusApplied        ApplicationStatus = "APPLIED"
	StatusFailed         ApplicationStatus = "FAILED"
	StatusSkippedMissing ApplicationStatus = "SKIPPED_MISSING_DETAILS"
)

// ─── Records ─────────────────────────────────────────────────────────────────

// JobPosting is a normalised job opening fetched from an external provider or
// synthesised as mock data. ExternalID is the provider-assigned identifier and
// is unique across the job_postings table.
type JobPosting struct {
	ExternalID   string    `json:"externalId"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	Source       Source    `json:"source"`
	RequiresDocs bool      `json:"requiresDocs"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// User mirrors the users table row relevant to the apply pipeline.
type User struct {
	ID         string
	Email      string
	Name       string
	Phone      string
	Tier       Tier
	Verified   bool
	ResumeURL  string
	Technology string
	Location   string
	Companies  []string // target companies selected by the user
	NotifySMS  bool
}

// ApplicantProfile is one candidate identity under a user account. Base tiers
// have exactly one profile synthesised from the user record; recruiter and
// business tiers manage several rows in applicant_profiles.
type ApplicantProfile struct {
	ID         string
	UserID     string
	Name       string
	Email      string
	Phone      string
	ResumeURL  string
	Technology string
	Address    string
	LinkedIn   string
	GitHub     string
	Portfolio  string
}

// MissingDetails returns the names of extra-document fields a posting flagged
// RequiresDocs needs but this profile does not have. Empty means complete.
func (p *ApplicantProfile) MissingDetails() []string {
	var missing []string
	if p.Address == "" {
		missing = append(missing, "address")
	}
	if p.LinkedIn == "" {
		missing = append(missing, "linkedin")
	}
	if p.ResumeURL == "" {
		missing = append(missing, "resume")
	}
	return missing
}

// Application records one submission attempt for a (user, profile, posting)
// triple. The applications table is the single source of truth for "has this
// user applied to this posting" — daily quota counts are derived from it.
type Application struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	ProfileID  string            `json:"profileId"`
	ExternalID string            `json:"externalId"`
	Title      string            `json:"title"`
	Company    string            `json:"company"`
	Status     ApplicationStatus `json:"status"`
	AppliedAt  time.Time         `json:"appliedAt"`
}

// RunSummary aggregates the counters of one scheduler tick for the audit log.
type RunSummary struct {
	RunID          string    `json:"runId"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	UsersProcessed int       `json:"usersProcessed"`
	UsersSkipped   int       `json:"usersSkipped"`
	Applied        int       `json:"applied"`
	Failed         int       `json:"failed"`
	Skipped        int       `json:"skipped"`
	Note           string    `json:"note"`
}
