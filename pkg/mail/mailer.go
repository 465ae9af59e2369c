package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ErrDisabled signals that outbound delivery is switched off via configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// Provider names accepted by New.
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings selects and configures a delivery provider.
type Settings struct {
	Provider string
	SMTP     SMTPSettings
	SendGrid SendGridSettings
}

// New builds the mailer for the configured provider. An empty provider means SMTP.
func New(cfg Settings) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderSMTP:
		return NewSMTPMailer(cfg.SMTP)
	case ProviderSendGrid:
		return NewSendGridMailer(cfg.SendGrid)
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", cfg.Provider)
	}
}

// envelope is the validated, de-duplicated form of a Message.
type envelope struct {
	from       string
	recipients []string
	subject    string
	body       string
}

func prepare(ctx context.Context, msg Message, defaultFrom string) (envelope, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return envelope{}, err
		}
	}

	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return envelope{}, errors.New("mail: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return envelope{}, errors.New("mail: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return envelope{}, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return envelope{}, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}

	return envelope{
		from:       from,
		recipients: recipients,
		subject:    escapeHeader(msg.Subject),
		body:       msg.Body,
	}, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

func defaultTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}
