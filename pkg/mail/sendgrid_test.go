package mail

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"
)

type stubSendGridClient struct {
	sent     []*sgmail.SGMailV3
	response *rest.Response
	err      error
}

func (s *stubSendGridClient) SendWithContext(_ context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	s.sent = append(s.sent, email)
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newTestSendGridMailer(t *testing.T, client *stubSendGridClient) *sendGridMailer {
	t.Helper()
	m, err := NewSendGridMailer(SendGridSettings{
		Enabled:  true,
		APIKey:   "SG.test",
		From:     "no-reply@example.com",
		FromName: "Project Achilles",
	})
	require.NoError(t, err)
	sm := m.(*sendGridMailer)
	sm.client = client
	return sm
}

func TestNewSendGridMailerValidatesConfig(t *testing.T) {
	_, err := NewSendGridMailer(SendGridSettings{Enabled: true, From: "no-reply@example.com"})
	require.ErrorContains(t, err, "api key is required")

	_, err = NewSendGridMailer(SendGridSettings{Enabled: true, APIKey: "SG.test"})
	require.ErrorContains(t, err, "from address is required")

	m, err := NewSendGridMailer(SendGridSettings{})
	require.NoError(t, err)
	require.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"user@example.com"}}), ErrDisabled)
}

func TestSendGridMailerBuildsMessage(t *testing.T) {
	client := &stubSendGridClient{response: &rest.Response{StatusCode: http.StatusAccepted}}
	mailer := newTestSendGridMailer(t, client)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"user@example.com"},
		Subject: "Your OTP for Project Achilles",
		Body:    "Your OTP is: 000042",
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	sent := client.sent[0]
	require.Equal(t, "no-reply@example.com", sent.From.Address)
	require.Equal(t, "Project Achilles", sent.From.Name)
	require.Equal(t, "Your OTP for Project Achilles", sent.Subject)
	require.Len(t, sent.Personalizations, 1)
	require.Len(t, sent.Personalizations[0].To, 1)
	require.Equal(t, "user@example.com", sent.Personalizations[0].To[0].Address)
	require.Len(t, sent.Content, 1)
	require.Equal(t, "text/plain", sent.Content[0].Type)
	require.Equal(t, "Your OTP is: 000042", sent.Content[0].Value)
}

func TestSendGridMailerRejectsErrorStatus(t *testing.T) {
	client := &stubSendGridClient{response: &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key\n"}}
	mailer := newTestSendGridMailer(t, client)

	err := mailer.Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "401"), err.Error())
	require.Contains(t, err.Error(), "bad key")
}

func TestSendGridMailerWrapsTransportError(t *testing.T) {
	client := &stubSendGridClient{err: errors.New("connection reset")}
	mailer := newTestSendGridMailer(t, client)

	err := mailer.Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorContains(t, err, "connection reset")
}
