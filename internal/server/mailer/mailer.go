package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dmitrijs2005/signvault/internal/common"
)

// EmailRequest describes one outgoing message.
type EmailRequest struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers invite and status emails. Delivery failures never
// block envelope processing; callers record them and move on.
type Mailer interface {
	Send(ctx context.Context, req EmailRequest) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host string, port int, from, username, password string) *SMTPMailer {
	m := &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, req EmailRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", req.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", req.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{req.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	return nil
}
