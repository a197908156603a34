package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
)

const (
	smtpsPort   = 465
	dialTimeout = 15 * time.Second
)

// ErrInvalidMessage marks a message that can never be delivered as-is.
var ErrInvalidMessage = errors.New("invalid mail message")

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// Sender delivers messages through an SMTP relay, with PLAIN auth when a
// username is configured.
type Sender struct {
	from    string
	deliver deliverFunc
}

// NewSender validates the mail config and returns an SMTP sender. Port 465
// uses implicit TLS; other ports upgrade with STARTTLS when the relay offers it.
func NewSender(cfg config.MailConfig) (*Sender, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errors.New("mail from address is required")
	}
	if err := mail.NewMsg().From(from); err != nil {
		return nil, fmt.Errorf("mail from address: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(dialTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Port == smtpsPort {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Sender{
		from: from,
		deliver: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Send writes msg to the relay.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := strings.TrimSpace(msg.To)
	if to == "" || strings.ContainsAny(to, "\r\n") || !strings.Contains(to, "@") {
		return fmt.Errorf("%w: recipient %q", ErrInvalidMessage, msg.To)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("%w: subject contains line breaks", ErrInvalidMessage)
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("%w: sender: %v", ErrInvalidMessage, err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, to, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	if err := s.deliver(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
