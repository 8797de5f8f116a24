package alert

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/classmind/classmind/app/cfg"
)

const fromAddress = "ClassMind <alerts@classmind.dev>"

// Mailer delivers operator notifications through Resend. It is constructed
// once at startup; a missing recipient disables sending so local runs work
// without mail credentials.
type Mailer struct {
	client *resend.Client
	to     string
	runURL string
}

func NewMailer() *Mailer {
	appCfg := cfg.Get()

	return &Mailer{
		client: resend.NewClient(appCfg.ResendAPIKey),
		to:     appCfg.AlertEmail,
		runURL: appCfg.RunURL,
	}
}

// Enabled reports whether the mailer has a recipient configured.
func (m *Mailer) Enabled() bool {
	return m.to != ""
}

func (m *Mailer) SendFailureAlert(ctx context.Context, errorMessage string) error {
	body := fmt.Sprintf(`
		<h2>ClassMind sync is failing</h2>
		<p>Consecutive sync passes have failed. Last error:</p>
		<pre>%s</pre>
		<p>Reported at %s.</p>`,
		html.EscapeString(errorMessage),
		time.Now().UTC().Format(time.RFC1123))

	if m.runURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">View run logs</a></p>`, m.runURL)
	}

	return m.send(ctx, "ClassMind sync failure", body)
}

func (m *Mailer) SendRecovery(ctx context.Context) error {
	body := fmt.Sprintf(`
		<h2>ClassMind sync recovered</h2>
		<p>A sync pass completed successfully after earlier failures. No action needed.</p>
		<p>Recovered at %s.</p>`,
		time.Now().UTC().Format(time.RFC1123))

	return m.send(ctx, "ClassMind sync recovered", body)
}

func (m *Mailer) send(ctx context.Context, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("alert email recipient is not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      []string{m.to},
		Subject: subject,
		Html:    body,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
