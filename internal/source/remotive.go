package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/retry"
)

const (
	remotiveBaseURL = "https://remotive.com/api/remote-jobs"
	remotiveLimit   = 100
)

// RemotiveProvider fetches remote job offers from the Remotive public API.
// Remotive needs no credentials; one call returns everything for a search term.
type RemotiveProvider struct {
	client  *http.Client
	limiter *rate.Limiter

	// baseURL is overridable in tests.
	baseURL string
}

// NewRemotiveProvider constructs a provider with a shared HTTP client.
func NewRemotiveProvider() *RemotiveProvider {
	return &RemotiveProvider{
		client:  &http.Client{Timeout: httpTimeout},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		baseURL: remotiveBaseURL,
	}
}

// Name implements Provider.
func (p *RemotiveProvider) Name() model.Source { return model.SourceRemotive }

// remotiveResponse mirrors the Remotive API envelope.
type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"candidate_required_location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Fetch queries Remotive for the technology keyword and keeps postings from
// the query's target companies. A 429 surfaces as retryable ErrRateLimited.
func (p *RemotiveProvider) Fetch(ctx context.Context, q Query) ([]model.JobPosting, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search", q.Technology)
	params.Set("limit", strconv.Itoa(remotiveLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retry.MarkRetryable(fmt.Errorf("%w: remotive", ErrRateLimited))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remotive returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp remotiveResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	now := time.Now().UTC()
	postings := make([]model.JobPosting, 0, len(apiResp.Jobs))
	for _, j := range apiResp.Jobs {
		if !matchesCompanies(j.CompanyName, q.Companies) {
			continue
		}
		postings = append(postings, model.JobPosting{
			ExternalID:  fmt.Sprintf("remotive:%d", j.ID),
			Title:       j.Title,
			Company:     j.CompanyName,
			Location:    j.Location,
			URL:         j.URL,
			Description: j.Description,
			Source:      model.SourceRemotive,
			FetchedAt:   now,
		})
	}

	return postings, nil
}
