// Package notify defines the activation-email boundary consumed by the
// account lifecycle. Delivery policy lives with the SMTP provider; this is
// only the thin delegation.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/yicone/chatgpt-web-share/internal/config"
)

// Notifier sends an activation email for a pending account.
type Notifier interface {
	SendActivationEmail(ctx context.Context, email, token string) error
}

// SMTPNotifier delivers activation emails through a plain SMTP relay.
type SMTPNotifier struct {
	cfg config.Mail
}

// NewSMTPNotifier builds a notifier from the mail configuration.
func NewSMTPNotifier(cfg config.Mail) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// SendActivationEmail sends the plain-text activation message.
func (n *SMTPNotifier) SendActivationEmail(_ context.Context, email, token string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{email}, activationMessage(n.cfg, email, token)); err != nil {
		return fmt.Errorf("send activation email to %s: %w", email, err)
	}
	return nil
}

func activationMessage(cfg config.Mail, email, token string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Account activation\r\n\r\n"+
		"Please click the following link to activate your account: %s/auth/verify/%s\r\n",
		cfg.From, email, cfg.BaseURL, token))
}

// LogNotifier logs instead of sending. Used when no mail relay is
// configured and in tests.
type LogNotifier struct{}

// SendActivationEmail logs the activation link.
func (LogNotifier) SendActivationEmail(_ context.Context, email, token string) error {
	log.Printf("📧 Activation email for %s (token %s) suppressed: no mail relay configured", email, token)
	return nil
}
