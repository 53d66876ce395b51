// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers one HTML message
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer is a Sender backed by gomail
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a mailer that dials host:port for every message
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

// Send delivers the message, giving up early if ctx is already done
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
