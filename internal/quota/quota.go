// Package quota holds the pure tier-limit and eligibility logic for the apply
// pipeline. It is storage-agnostic: callers load the user and today's counts,
// this package decides what is allowed.
package quota

import (
	"fmt"

	"jobpilot/apply-service/internal/model"
)

// dailyLimits is the fixed per-tier submission budget per calendar day.
var dailyLimits = map[model.Tier]int{
	model.TierTrial:     10,
	model.TierStudent:   45,
	model.TierRecruiter: 100,
	model.TierBusiness:  250,
}

// profileSlots is how many applicant profiles each tier may run per tick.
var profileSlots = map[model.Tier]int{
	model.TierTrial:     1,
	model.TierStudent:   1,
	model.TierRecruiter: 5,
	model.TierBusiness:  20,
}

// Limit returns the daily application budget for a tier. Unknown tiers get
// the trial budget.
func Limit(tier model.Tier) int {
	if l, ok := dailyLimits[tier]; ok {
		return l
	}
	return dailyLimits[model.TierTrial]
}

// ProfileSlots returns how many applicant profiles a tier may process.
func ProfileSlots(tier model.Tier) int {
	if n, ok := profileSlots[tier]; ok {
		return n
	}
	return 1
}

// Remaining returns how many more applications the tier may submit today,
// never negative.
func Remaining(tier model.Tier, appliedToday int) int {
	r := Limit(tier) - appliedToday
	if r < 0 {
		return 0
	}
	return r
}

// IneligibleError explains why a user was skipped for a run.
type IneligibleError struct{ Reason string }

func (e *IneligibleError) Error() string { return fmt.Sprintf("user ineligible: %s", e.Reason) }

// CheckEligibility returns nil when the user may be processed, or an
// IneligibleError naming the first failed prerequisite. An ineligible user is
// skipped entirely — no provider calls are made on their behalf.
func CheckEligibility(u *model.User) error {
	switch {
	case !u.Verified:
		return &IneligibleError{Reason: "account not verified"}
	case u.ResumeURL == "":
		return &IneligibleError{Reason: "no resume on file"}
	case len(u.Companies) == 0:
		return &IneligibleError{Reason: "no target companies selected"}
	case u.Technology == "":
		return &IneligibleError{Reason: "no technology selected"}
	}
	return nil
}
