package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mail "github.com/wneessen/go-mail"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
)

type captured struct {
	recipients []string
	raw        string
	calls      int
}

func newTestSender(t *testing.T, sendErr error) (*Sender, *captured) {
	t.Helper()
	s, err := NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "tienda@example.com", Password: "pw"})
	require.NoError(t, err)
	got := &captured{}
	s.deliver = func(_ context.Context, msg *mail.Msg) error {
		got.calls++
		recipients, err := msg.GetRecipients()
		require.NoError(t, err)
		got.recipients = recipients

		var buf bytes.Buffer
		_, err = msg.WriteTo(&buf)
		require.NoError(t, err)
		got.raw = buf.String()
		return sendErr
	}
	return s, got
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	s, got := newTestSender(t, nil)

	err := s.Send(context.Background(), Message{To: " ana@example.com ", Subject: "Pedido en camino", HTMLBody: "<p>Hola</p>"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ana@example.com"}, got.recipients)
	assert.Contains(t, got.raw, "tienda@example.com")
	assert.Contains(t, got.raw, "Subject: Pedido en camino")
	assert.Contains(t, got.raw, "text/html")
	assert.Contains(t, got.raw, "<p>Hola</p>")
}

func TestSendEncodesNonASCIISubject(t *testing.T) {
	s, got := newTestSender(t, nil)
	require.NoError(t, s.Send(context.Background(), Message{To: "ana@example.com", Subject: "Tu orden está lista"}))
	assert.Contains(t, strings.ToLower(got.raw), "subject: =?utf-8?q?")
	assert.NotContains(t, got.raw, "está")
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	s, got := newTestSender(t, nil)

	err := s.Send(context.Background(), Message{To: "", Subject: "x"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	err = s.Send(context.Background(), Message{To: "ana@example.com\r\nBcc: x@example.com", Subject: "x"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	err = s.Send(context.Background(), Message{To: "ana@example.com", Subject: "a\nb"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	assert.Zero(t, got.calls)
}

func TestSendWrapsTransportErrors(t *testing.T) {
	s, _ := newTestSender(t, errors.New("connection refused"))
	err := s.Send(context.Background(), Message{To: "ana@example.com", Subject: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidMessage)
}

func TestSendHonorsCanceledContext(t *testing.T) {
	s, got := newTestSender(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "ana@example.com", Subject: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, got.calls)
}

func TestNewSenderValidation(t *testing.T) {
	_, err := NewSender(config.MailConfig{Port: 587, From: "a@example.com"})
	assert.Error(t, err)
	_, err = NewSender(config.MailConfig{Host: "smtp.example.com", From: "a@example.com"})
	assert.Error(t, err)
	_, err = NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587})
	assert.Error(t, err)
	_, err = NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "not an address"})
	assert.Error(t, err)

	_, err = NewSender(config.MailConfig{Host: "smtp.example.com", Port: 465, From: "a@example.com"})
	assert.NoError(t, err)
}
