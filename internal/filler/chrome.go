package filler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"jobpilot/apply-service/internal/model"
)

const navigationTimeout = 45 * time.Second

// fieldSelectors maps profile fields to the input selectors seen across the
// supported boards' apply forms. Brittle by nature: any DOM change on the
// board side shows up as a Submit error attributed to this strategy.
var fieldSelectors = []struct {
	selector string
	value    func(p *model.ApplicantProfile) string
}{
	{`input[name="name"], input[name="full_name"], input[id="name"]`, func(p *model.ApplicantProfile) string { return p.Name }},
	{`input[name="email"], input[type="email"]`, func(p *model.ApplicantProfile) string { return p.Email }},
	{`input[name="phone"], input[type="tel"]`, func(p *model.ApplicantProfile) string { return p.Phone }},
	{`input[name="address"], input[id="address"]`, func(p *model.ApplicantProfile) string { return p.Address }},
	{`input[name="linkedin"], input[id="linkedin"]`, func(p *model.ApplicantProfile) string { return p.LinkedIn }},
	{`input[name="github"], input[id="github"]`, func(p *model.ApplicantProfile) string { return p.GitHub }},
	{`input[name="portfolio"], input[name="website"]`, func(p *model.ApplicantProfile) string { return p.Portfolio }},
	{`input[name="resume_url"], input[id="resume"]`, func(p *model.ApplicantProfile) string { return p.ResumeURL }},
}

// ChromeStrategy submits application forms through a headless Chrome session.
// One browser context is opened and torn down per attempt: no pooling, which
// bounds resource use at the cost of per-application latency.
type ChromeStrategy struct {
	// allocator options, fixed at construction.
	opts []chromedp.ExecAllocatorOption
}

// NewChromeStrategy builds the headless-Chrome submission strategy.
func NewChromeStrategy() *ChromeStrategy {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	return &ChromeStrategy{opts: opts}
}

// CanHandle accepts any posting with an apply URL. Registered last so
// provider-specific strategies win when present.
func (c *ChromeStrategy) CanHandle(posting *model.JobPosting) bool {
	return posting.URL != ""
}

// Submit opens the posting's apply page, fills every known field present in
// the DOM, and clicks the submit control. The whole drive runs under a
// navigation timeout; any step error aborts the attempt.
func (c *ChromeStrategy) Submit(ctx context.Context, posting *model.JobPosting, profile *model.ApplicantProfile) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, navigationTimeout)
	defer cancelRun()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(posting.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", posting.URL, err)
	}

	// Fill every selector that exists on the page and has a value on file.
	// Absent inputs are fine — boards differ; empty values are never typed.
	for _, fs := range fieldSelectors {
		val := fs.value(profile)
		if val == "" {
			continue
		}
		var nodes int
		if err := chromedp.Run(runCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, fs.selector), &nodes),
		); err != nil {
			return fmt.Errorf("probe %q: %w", fs.selector, err)
		}
		if nodes == 0 {
			continue
		}
		if err := chromedp.Run(runCtx,
			chromedp.SendKeys(fs.selector, val, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("fill %q: %w", fs.selector, err)
		}
	}

	if err := chromedp.Run(runCtx,
		chromedp.Click(`button[type="submit"], input[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submit %s: %w", posting.URL, err)
	}

	return nil
}

// MockStrategy accepts mock postings without touching a browser, so degraded
// runs still exercise the full pipeline.
type MockStrategy struct{}

// CanHandle implements SubmissionStrategy.
func (MockStrategy) CanHandle(posting *model.JobPosting) bool {
	return posting.Source == model.SourceMock
}

// Submit implements SubmissionStrategy. Mock submissions always succeed.
func (MockStrategy) Submit(ctx context.Context, posting *model.JobPosting, profile *model.ApplicantProfile) error {
	return nil
}
