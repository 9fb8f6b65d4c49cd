package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/carewell-health/clinic-scheduling/internal/config"
)

// Mailer sends plain-text notification mail through the configured SMTP
// relay.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	host string
	port int
	from string
	auth smtp.Auth
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.SMTPFrom,
		auth: auth,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
