package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/retry"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per query
	httpTimeout    = 15 * time.Second
)

// AdzunaProvider fetches job offers from the Adzuna public API.
// If AppID or AppKey is empty, Fetch returns (nil, nil) gracefully — the
// registry will fall through to the remaining providers or mock data.
type AdzunaProvider struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	client  *http.Client
	limiter *rate.Limiter
}

// NewAdzunaProvider constructs a provider with a shared HTTP client and a
// limiter keeping well under Adzuna's free-tier request budget.
func NewAdzunaProvider(appID, appKey, country string) *AdzunaProvider {
	return &AdzunaProvider{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		client:  &http.Client{Timeout: httpTimeout},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Name implements Provider.
func (p *AdzunaProvider) Name() model.Source { return model.SourceAdzuna }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Fetch retrieves offers matching the query, iterating through pages until no
// more results or adzunaMaxPages is reached, keeping only postings from the
// query's target companies. Returns nil without error when credentials are
// missing. A 429 from the API surfaces as a retryable ErrRateLimited.
func (p *AdzunaProvider) Fetch(ctx context.Context, q Query) ([]model.JobPosting, error) {
	if p.AppID == "" || p.AppKey == "" {
		log.Println("[adzuna] ADZUNA_APP_ID / ADZUNA_APP_KEY not set — skipping provider")
		return nil, nil
	}

	var results []model.JobPosting

	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := p.fetchPage(ctx, q, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break // No more results
		}
		results = append(results, batch...)
		if len(batch) < adzunaPageSize {
			break // Last page
		}
	}

	return results, nil
}

func (p *AdzunaProvider) fetchPage(ctx context.Context, q Query, page int) ([]model.JobPosting, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/search/%d", adzunaBaseURL, p.Country, page)

	params := url.Values{}
	params.Set("app_id", p.AppID)
	params.Set("app_key", p.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Technology)
	params.Set("where", q.Location)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
		return nil, retry.MarkRetryable(fmt.Errorf("%w: adzuna page %d", ErrRateLimited, page))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	now := time.Now().UTC()
	postings := make([]model.JobPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		if !matchesCompanies(r.Company.DisplayName, q.Companies) {
			continue
		}
		postings = append(postings, model.JobPosting{
			ExternalID:  "adzuna:" + r.ID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			URL:         r.RedirectURL,
			Description: r.Description,
			Source:      model.SourceAdzuna,
			FetchedAt:   now,
		})
	}

	return postings, nil
}
