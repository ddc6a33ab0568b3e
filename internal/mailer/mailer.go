// Package mailer delivers transactional mail through an injected interface,
// never through ambient globals. All ticket-core sends are fire-and-forget.
package mailer

import (
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a configured SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)
	return m.dialer.DialAndSend(msg)
}

// LogMailer stands in when SMTP is not configured. Messages are logged
// instead of delivered so local development still shows what would go out.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.Logger.Info("mail delivery skipped (smtp not configured)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
