// Package notify delivers one-way email summaries of new commission
// requests. Delivery is best-effort: the intake pipeline logs and ignores
// any failure reported here.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atelierhq/atelier/backend/internal/intake"
	mail "github.com/wneessen/go-mail"
)

// ErrNotConfigured indicates the mailer was constructed without SMTP
// credentials or a recipient.
var ErrNotConfigured = errors.New("notify: mailer not configured")

const subject = "New Art Request Received"

// Config describes the SMTP relay and the fixed recipient.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mailer sends a plain-text summary of a request to the configured
// recipient.
type Mailer struct {
	cfg Config
}

// NewMailer constructs a Mailer. As with the asset uploader, missing
// configuration is surfaced per call so an unconfigured deployment still
// starts.
func NewMailer(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg}
}

// Notify emails a human-readable dump of the request. One attempt, no retry.
func (m *Mailer) Notify(ctx context.Context, request intake.CommissionRequest) error {
	if m.cfg.Host == "" || m.cfg.To == "" || m.cfg.From == "" {
		return ErrNotConfigured
	}

	summary, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return fmt.Errorf("notify: encode request summary: %w", err)
	}

	message := mail.NewMsg()
	if err := message.From(m.cfg.From); err != nil {
		return fmt.Errorf("notify: sender address: %w", err)
	}
	if err := message.To(m.cfg.To); err != nil {
		return fmt.Errorf("notify: recipient address: %w", err)
	}
	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("Request data:\n%s\n", summary))

	options := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, options...)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("notify: send to %s: %w", m.cfg.To, err)
	}
	return nil
}
