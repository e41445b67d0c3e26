package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/authcore-go/authcore"
)

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	// Addr is the relay address in host:port form.
	Addr string

	// From is the sender address.
	From string

	// Auth is optional; nil sends without authentication.
	Auth smtp.Auth
}

func (s *SMTP) Send(ctx context.Context, to string, tpl authcore.TemplateID, params map[string]string) error {
	subject, body, err := render(tpl, params)
	if err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg.String())); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
