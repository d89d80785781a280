// Package notify composes and dispatches user notifications: a summary email
// per run, missing-details requests per posting, and best-effort SMS. Send
// failures are logged and swallowed — they never block the apply flow.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"jobpilot/apply-service/internal/config"
	"jobpilot/apply-service/internal/model"
)

// mailSender abstracts the SMTP client so tests inject a recorder.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// smsSender abstracts the SMS transport. Nil means SMS is disabled.
type smsSender interface {
	Send(ctx context.Context, to, body string) error
}

// Notifier renders fixed templates and dispatches them.
type Notifier struct {
	from   string
	mailer mailSender
	sms    smsSender
}

// New builds a Notifier from config: an SMTP client (required) and a Twilio
// sender when credentials are configured.
func New(cfg *config.Config) (*Notifier, error) {
	opts := []mail.Option{mail.WithPort(cfg.SMTPPort)}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail.NewClient: %w", err)
	}

	n := &Notifier{from: cfg.SMTPFrom, mailer: client}
	if cfg.SMSEnabled() {
		n.sms = newTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom)
	}
	return n, nil
}

// SendRunSummary emails the user one confirmation covering everything applied
// to in this run, and mirrors a short version over SMS when the user opted in.
// No-op when nothing was applied.
func (n *Notifier) SendRunSummary(ctx context.Context, user *model.User, applied []model.Application) {
	if len(applied) == 0 {
		return
	}

	body, err := renderSummary(displayName(user), applied)
	if err != nil {
		slog.Warn("summary render failed", "user", user.ID, "err", err)
		return
	}

	subject := fmt.Sprintf("Applied to %d job(s) on your behalf", len(applied))
	if err := n.sendMail(ctx, user.Email, subject, body); err != nil {
		slog.Warn("summary email failed", "user", user.ID, "err", err)
	}

	if user.NotifySMS && user.Phone != "" {
		n.sendSMS(ctx, user, smsSummary(applied))
	}
}

// SendMissingDetailsRequest emails the user that a posting's apply form needs
// profile fields not yet on file. Fired immediately, once per skipped posting.
func (n *Notifier) SendMissingDetailsRequest(ctx context.Context, user *model.User, profile *model.ApplicantProfile, posting model.JobPosting, missing []string) {
	profileName := profile.Name
	if profileName == "" {
		profileName = "your profile"
	}

	body, err := renderMissing(displayName(user), profileName, posting, missing)
	if err != nil {
		slog.Warn("missing-details render failed", "user", user.ID, "err", err)
		return
	}

	subject := fmt.Sprintf("Action needed: %s at %s", posting.Title, posting.Company)
	if err := n.sendMail(ctx, user.Email, subject, body); err != nil {
		slog.Warn("missing-details email failed", "user", user.ID, "posting", posting.ExternalID, "err", err)
	}
}

func (n *Notifier) sendMail(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("from %q: %w", n.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := n.mailer.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// sendSMS is best-effort: disabled transport or send failure only logs.
func (n *Notifier) sendSMS(ctx context.Context, user *model.User, body string) {
	if n.sms == nil {
		return
	}
	if err := n.sms.Send(ctx, user.Phone, body); err != nil {
		slog.Warn("sms send failed", "user", user.ID, "err", err)
	}
}

func displayName(user *model.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}

// smsSummary keeps the SMS to one short line listing at most three companies.
func smsSummary(applied []model.Application) string {
	companies := make([]string, 0, 3)
	for _, a := range applied {
		if len(companies) == 3 {
			break
		}
		companies = append(companies, a.Company)
	}
	line := strings.Join(companies, ", ")
	if len(applied) > 3 {
		line += fmt.Sprintf(" and %d more", len(applied)-3)
	}
	return fmt.Sprintf("Applied to %d job(s): %s", len(applied), line)
}
