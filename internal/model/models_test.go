package model_test

import (
	"testing"

	"jobpilot/apply-service/internal/model"
)

// ── ParseTier ──────────────────────────────────────────────────────────────

func TestParseTier_ValidValues(t *testing.T) {
	valid := []string{"TRIAL", "STUDENT", "RECRUITER", "BUSINESS"}
	for _, s := range valid {
		got, err := model.ParseTier(s)
		if err != nil {
			t.Errorf("ParseTier(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseTier(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseTier_InvalidValue(t *testing.T) {
	_, err := model.ParseTier("GOLD")
	if err == nil {
		t.Error("ParseTier(\"GOLD\") expected error, got nil")
	}
}

func TestParseTier_EmptyString(t *testing.T) {
	_, err := model.ParseTier("")
	if err == nil {
		t.Error("ParseTier(\"\") expected error, got nil")
	}
}

// ── ParseSource ────────────────────────────────────────────────────────────

func TestParseSource_ValidValues(t *testing.T) {
	valid := []string{"ADZUNA", "REMOTIVE", "MOCK"}
	for _, s := range valid {
		got, err := model.ParseSource(s)
		if err != nil {
			t.Errorf("ParseSource(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseSource(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseSource_InvalidValue(t *testing.T) {
	_, err := model.ParseSource("CRAIGSLIST")
	if err == nil {
		t.Error("ParseSource(\"CRAIGSLIST\") expected error, got nil")
	}
}

// ── MissingDetails ─────────────────────────────────────────────────────────

func TestMissingDetails_CompleteProfile(t *testing.T) {
	p := model.ApplicantProfile{
		Address:   "1 Main St",
		LinkedIn:  "https://linkedin.com/in/dana",
		ResumeURL: "https://cdn.example.com/dana.pdf",
	}
	if missing := p.MissingDetails(); len(missing) != 0 {
		t.Errorf("complete profile reported missing fields: %v", missing)
	}
}

func TestMissingDetails_ReportsEachAbsentField(t *testing.T) {
	cases := []struct {
		name    string
		profile model.ApplicantProfile
		want    []string
	}{
		{
			"missing address",
			model.ApplicantProfile{LinkedIn: "x", ResumeURL: "y"},
			[]string{"address"},
		},
		{
			"missing linkedin",
			model.ApplicantProfile{Address: "x", ResumeURL: "y"},
			[]string{"linkedin"},
		},
		{
			"missing everything",
			model.ApplicantProfile{},
			[]string{"address", "linkedin", "resume"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.profile.MissingDetails()
			if len(got) != len(c.want) {
				t.Fatalf("MissingDetails() = %v, want %v", got, c.want)
			}
			for i := range c.want {
				if got[i] != c.want[i] {
					t.Errorf("MissingDetails()[%d] = %q, want %q", i, got[i], c.want[i])
				}
			}
		})
	}
}
