package mailer

import (
	"gopkg.in/gomail.v2"

	"github.com/campushq/announcements-api/pkg/config"
)

// Sender delivers a single plain-text email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTP sends mail through a gomail dialer.
type SMTP struct {
	dialer      *gomail.Dialer
	fromAddress string
	fromName    string
}

// NewSMTP builds an SMTP sender from configuration.
func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// Send dials the configured server and delivers one message.
func (s *SMTP) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromAddress, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}
