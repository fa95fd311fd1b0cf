// Package mail delivers plain-text notification emails over SMTP, or logs
// them when delivery is disabled.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/platform/logger"
)

// ErrNoRecipient is returned for a message without a recipient.
var ErrNoRecipient = errors.New("mail: no recipient")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when mail is enabled and a LogSender otherwise.
func New(cfg config.MailConfig, log *slog.Logger) (Sender, error) {
	if log == nil {
		log = slog.Default()
	}
	if !cfg.Enabled {
		return NewLogSender(cfg.From, log), nil
	}
	return NewSMTPSender(cfg, log)
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	client *gomail.Client
	from   string
	logger *slog.Logger
}

// NewSMTPSender creates an SMTPSender for the configured relay.
func NewSMTPSender(cfg config.MailConfig, log *slog.Logger) (*SMTPSender, error) {
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPSender{
		client: client,
		from:   cfg.From,
		logger: log.With("component", "mail"),
	}, nil
}

// Build assembles the MIME message sent for msg.
func Build(from string, msg Message) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

// Send delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := Build(s.from, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	from   string
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(from string, log *slog.Logger) *LogSender {
	return &LogSender{from: from, logger: log.With("component", "mail")}
}

// Send logs msg.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := Build(s.from, msg); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("mail delivery disabled, message logged",
		"from", s.from,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
