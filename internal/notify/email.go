// internal/notify/email.go
package notify

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailConfig configures the email channel. The default host/port pair is
// Gmail's implicit-TLS SMTP endpoint; Password is the app password from
// the EMAIL_APP_PASSWORD environment variable.
type EmailConfig struct {
	Enabled   bool
	Sender    string
	Recipient string
	SMTPHost  string
	SMTPPort  int
	Password  string
}

// EmailSender sends a plain-text notification email.
type EmailSender interface {
	Send(subject, body string) error
}

// Emailer sends notifications over SMTP with implicit TLS.
type Emailer struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

// NewEmailer builds the email channel.
func NewEmailer(cfg EmailConfig, logger *zap.Logger) *Emailer {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Sender, cfg.Password)
	dialer.SSL = true

	return &Emailer{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.Named("email"),
	}
}

// Send delivers one message. Disabled or misconfigured email is a log
// line and a clean return, never an error that could abort trading.
func (e *Emailer) Send(subject, body string) error {
	if !e.cfg.Enabled {
		return nil
	}
	if e.cfg.Sender == "" || e.cfg.Recipient == "" || e.cfg.Password == "" {
		e.logger.Warn("Email notification skipped: missing sender, recipient, or EMAIL_APP_PASSWORD")
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", e.cfg.Sender)
	msg.SetHeader("To", e.cfg.Recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := e.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	e.logger.Info("Email notification sent", zap.String("subject", subject))
	return nil
}
