package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSettings configure delivery through the SendGrid v3 API.
type SendGridSettings struct {
	Enabled  bool
	APIKey   string
	From     string
	FromName string
	Timeout  time.Duration
}

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type sendGridMailer struct {
	cfg    SendGridSettings
	client sendGridClient
}

// NewSendGridMailer returns a Mailer that posts messages to the SendGrid API.
func NewSendGridMailer(cfg SendGridSettings) (Mailer, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("sendgrid: api key is required when enabled")
		}
		if strings.TrimSpace(cfg.From) == "" {
			return nil, errors.New("sendgrid: from address is required when enabled")
		}
	}
	cfg.Timeout = defaultTimeout(cfg.Timeout)

	return &sendGridMailer{
		cfg:    cfg,
		client: sendgrid.NewSendClient(cfg.APIKey),
	}, nil
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	env, err := prepare(ctx, msg, m.cfg.From)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	resp, err := m.client.SendWithContext(ctx, buildSendGridMail(env, m.cfg.FromName))
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

func buildSendGridMail(env envelope, fromName string) *sgmail.SGMailV3 {
	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(fromName, env.from))
	message.Subject = env.subject

	personalization := sgmail.NewPersonalization()
	for _, rcpt := range env.recipients {
		personalization.AddTos(sgmail.NewEmail("", rcpt))
	}
	message.AddPersonalizations(personalization)
	message.AddContent(sgmail.NewContent("text/plain", env.body))

	return message
}
