package receipt

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Mailer sends rendered receipts as PDF attachments over SMTP
type Mailer struct {
	from string
	addr string
	auth smtp.Auth
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer authenticates with PLAIN auth when a user is given. from defaults to user.
func NewMailer(host string, port int, user, password, from string) *Mailer {
	if from == "" {
		from = user
	}
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &Mailer{
		from: from,
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

// SendReceipt mails one receipt to a single recipient
func (m *Mailer) SendReceipt(to, subject, body, filename string, pdf []byte) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if _, err := e.Attach(bytes.NewReader(pdf), filename, "application/pdf"); err != nil {
		return fmt.Errorf("mailer: attach receipt: %w", err)
	}

	if err := m.send(e, m.addr, m.auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
