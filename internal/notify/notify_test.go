package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"

	"jobpilot/apply-service/internal/model"
)

// recordingMailer captures messages instead of dialing SMTP.
type recordingMailer struct {
	msgs []*mail.Msg
}

func (r *recordingMailer) DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error {
	r.msgs = append(r.msgs, msgs...)
	return nil
}

// recordingSMS captures SMS bodies.
type recordingSMS struct {
	bodies []string
}

func (r *recordingSMS) Send(ctx context.Context, to, body string) error {
	r.bodies = append(r.bodies, body)
	return nil
}

func testUser() *model.User {
	return &model.User{
		ID:    "u1",
		Email: "dana@example.com",
		Name:  "Dana",
		Phone: "+15550100",
	}
}

// ── Templates ──────────────────────────────────────────────────────────────

func TestRenderSummary_ListsEveryApplication(t *testing.T) {
	applied := []model.Application{
		{Title: "Go Engineer", Company: "Globex"},
		{Title: "Backend Developer", Company: "Initech"},
	}

	html, err := renderSummary("Dana", applied)
	if err != nil {
		t.Fatalf("renderSummary: %v", err)
	}
	for _, want := range []string{"Dana", "Go Engineer", "Globex", "Backend Developer", "Initech"} {
		if !strings.Contains(html, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestRenderMissing_ListsMissingFields(t *testing.T) {
	posting := model.JobPosting{Title: "Go Engineer", Company: "Globex"}

	html, err := renderMissing("Dana", "Alex Roe", posting, []string{"address", "linkedin"})
	if err != nil {
		t.Fatalf("renderMissing: %v", err)
	}
	for _, want := range []string{"Go Engineer", "Globex", "Alex Roe", "address", "linkedin"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing-details mail missing %q", want)
		}
	}
}

// ── Dispatch ───────────────────────────────────────────────────────────────

func TestSendRunSummary_OneEmailPerRun(t *testing.T) {
	mailer := &recordingMailer{}
	n := &Notifier{from: "noreply@example.com", mailer: mailer}

	applied := []model.Application{
		{Title: "Go Engineer", Company: "Globex"},
		{Title: "Backend Developer", Company: "Initech"},
		{Title: "Platform Engineer", Company: "Umbrella"},
	}
	n.SendRunSummary(context.Background(), testUser(), applied)

	if len(mailer.msgs) != 1 {
		t.Fatalf("sent %d emails, want exactly 1 per run", len(mailer.msgs))
	}
}

func TestSendRunSummary_NothingApplied_NoEmail(t *testing.T) {
	mailer := &recordingMailer{}
	n := &Notifier{from: "noreply@example.com", mailer: mailer}

	n.SendRunSummary(context.Background(), testUser(), nil)
	if len(mailer.msgs) != 0 {
		t.Errorf("sent %d emails, want 0 for empty run", len(mailer.msgs))
	}
}

func TestSendRunSummary_SMSOnlyWhenOptedIn(t *testing.T) {
	mailer := &recordingMailer{}
	sms := &recordingSMS{}
	n := &Notifier{from: "noreply@example.com", mailer: mailer, sms: sms}

	applied := []model.Application{{Title: "Go Engineer", Company: "Globex"}}

	u := testUser() // NotifySMS false
	n.SendRunSummary(context.Background(), u, applied)
	if len(sms.bodies) != 0 {
		t.Errorf("SMS sent without opt-in")
	}

	u.NotifySMS = true
	n.SendRunSummary(context.Background(), u, applied)
	if len(sms.bodies) != 1 {
		t.Fatalf("sent %d SMS, want 1", len(sms.bodies))
	}
	if !strings.Contains(sms.bodies[0], "Globex") {
		t.Errorf("SMS body %q missing company", sms.bodies[0])
	}
}

func TestSendMissingDetailsRequest(t *testing.T) {
	mailer := &recordingMailer{}
	n := &Notifier{from: "noreply@example.com", mailer: mailer}

	posting := model.JobPosting{ExternalID: "mock:1", Title: "Go Engineer", Company: "Globex"}
	profile := &model.ApplicantProfile{Name: "Alex Roe"}
	n.SendMissingDetailsRequest(context.Background(), testUser(), profile, posting, []string{"address"})

	if len(mailer.msgs) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.msgs))
	}
}

func TestSmsSummary_CapsAtThreeCompanies(t *testing.T) {
	applied := []model.Application{
		{Company: "A"}, {Company: "B"}, {Company: "C"}, {Company: "D"}, {Company: "E"},
	}
	got := smsSummary(applied)
	if !strings.Contains(got, "and 2 more") {
		t.Errorf("smsSummary = %q, want overflow suffix", got)
	}
	if strings.Contains(got, "D") {
		t.Errorf("smsSummary = %q, should not list the fourth company", got)
	}
}
