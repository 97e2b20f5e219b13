package mail

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spst-logistics/spst-api/internal/config"
)

// Mailer sends outbound notification emails
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

// SMTPMailer sends mail through the configured SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg *config.MailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password.Value),
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers one message to all recipients
func (m *SMTPMailer) Send(to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("mail sent",
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// NopMailer discards all messages. Used when mail is disabled.
type NopMailer struct{}

// Send implements Mailer
func (NopMailer) Send(to []string, subject, htmlBody string) error {
	return nil
}
