package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"unimarket/pkg/errors"
)

// Sender delivers one outbound email. Implementations must treat delivery
// failure as non-fatal to the caller's flow; the dispatcher logs and moves on.
type Sender interface {
	Send(to, subject, html string) error
}

type smtpSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPSender(host, port, user, pass, from string) Sender {
	return &smtpSender{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
	}
}

func (s *smtpSender) Send(to, subject, html string) error {
	if s.host == "" {
		return errors.Transport("SMTP host not configured", nil)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return errors.Transport("Failed to send email", err)
	}
	return nil
}
