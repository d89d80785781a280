package source

import (
	"fmt"
	"strings"
	"time"

	"jobpilot/apply-service/internal/model"
)

// mockRoles pads the synthetic batch so every company yields a few openings.
var mockRoles = []string{"Engineer", "Senior Engineer", "Developer"}

// MockPostings synthesises a deterministic batch of postings for the query,
// tagged SourceMock. Used when every live provider failed or was rate-limited
// so the pipeline downstream always has candidates to work with.
func MockPostings(q Query) []model.JobPosting {
	companies := q.Companies
	if len(companies) == 0 {
		companies = []string{"Acme Corp"}
	}

	tech := q.Technology
	if tech == "" {
		tech = "Software"
	}

	now := time.Now().UTC()
	postings := make([]model.JobPosting, 0, len(companies)*len(mockRoles))
	for _, company := range companies {
		for _, role := range mockRoles {
			slug := strings.ToLower(strings.ReplaceAll(company+"-"+tech+"-"+role, " ", "-"))
			postings = append(postings, model.JobPosting{
				ExternalID:  "mock:" + slug,
				Title:       fmt.Sprintf("%s %s", tech, role),
				Company:     company,
				Location:    q.Location,
				URL:         fmt.Sprintf("https://jobs.example.com/%s", slug),
				Description: fmt.Sprintf("%s is hiring a %s %s.", company, tech, role),
				Source:      model.SourceMock,
				FetchedAt:   now,
			})
		}
	}
	return postings
}
