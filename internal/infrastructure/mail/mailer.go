package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

// SMTPMailer sends plain-text mail over an SMTP relay.
type SMTPMailer struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)

	done := make(chan error, 1)
	go func() {
		var auth smtp.Auth
		if m.Username != "" {
			host, _, err := net.SplitHostPort(m.Addr)
			if err != nil {
				host = m.Addr
			}
			auth = smtp.PlainAuth("", m.Username, m.Password, host)
		}
		done <- smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes outgoing mail to the log instead of delivering it.
// Used in development when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("mail (not delivered): " + body)
	return nil
}
