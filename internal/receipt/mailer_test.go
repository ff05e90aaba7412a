package receipt

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_SendReceipt(t *testing.T) {
	m := NewMailer("smtp.example.test", 587, "shop@example.test", "secret", "")

	var sent *email.Email
	var sentAddr string
	m.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent, sentAddr = e, addr
		assert.NotNil(t, auth)
		return nil
	}

	pdf := []byte("%PDF-1.3 fake")
	require.NoError(t, m.SendReceipt("client@example.test", "Receipt FAC-1", "Thank you", "receipt-FAC-1.pdf", pdf))

	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.test:587", sentAddr)
	assert.Equal(t, "shop@example.test", sent.From)
	assert.Equal(t, []string{"client@example.test"}, sent.To)
	assert.Equal(t, "Thank you", string(sent.Text))
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "receipt-FAC-1.pdf", sent.Attachments[0].Filename)
	assert.Equal(t, pdf, sent.Attachments[0].Content)
}

func TestMailer_SendError(t *testing.T) {
	m := NewMailer("localhost", 25, "", "", "noreply@example.test")
	assert.Nil(t, m.auth)

	m.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }
	err := m.SendReceipt("client@example.test", "s", "b", "r.pdf", []byte("x"))
	assert.ErrorContains(t, err, "connection refused")
}
