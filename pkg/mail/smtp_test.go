package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

type recordingSMTPClient struct {
	from   string
	rcpts  []string
	data   bytes.Buffer
	quit   bool
	rcptFn func(string) error
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (c *recordingSMTPClient) Mail(from string) error {
	c.from = from
	return nil
}

func (c *recordingSMTPClient) Rcpt(to string) error {
	if c.rcptFn != nil {
		if err := c.rcptFn(to); err != nil {
			return err
		}
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}

func (c *recordingSMTPClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.data}, nil }

func (c *recordingSMTPClient) Quit() error {
	c.quit = true
	return nil
}

func (c *recordingSMTPClient) Close() error                    { return nil }
func (c *recordingSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (c *recordingSMTPClient) Auth(smtp.Auth) error            { return nil }
func (c *recordingSMTPClient) Extension(string) (bool, string) { return true, "" }

func newTestSMTPMailer(t *testing.T, cfg SMTPSettings, client *recordingSMTPClient) *smtpMailer {
	t.Helper()

	m, err := NewSMTPMailer(cfg)
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}
	sm := m.(*smtpMailer)
	sm.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	sm.dialFn = func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
		local, remote := net.Pipe()
		t.Cleanup(func() { _ = remote.Close() })
		return local, client, nil
	}
	sm.authFn = func(smtpClient, SMTPSettings) error { return nil }
	return sm
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	if err == nil || !strings.Contains(err.Error(), "from address or username") {
		t.Fatalf("expected sender validation error, got %v", err)
	}

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	if err != nil {
		t.Fatalf("expected disabled configuration to succeed: %v", err)
	}
	if mailer == nil {
		t.Fatal("expected mailer to be returned")
	}
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestSMTPMailerDefaults(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     ImplicitTLSPort,
		Username: "mailer@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	sm := mailer.(*smtpMailer)
	if sm.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout to be 10s, got %v", sm.cfg.Timeout)
	}
	if !sm.cfg.UseTLS {
		t.Fatal("expected implicit TLS on port 465")
	}
	if sm.cfg.From != "mailer@example.com" {
		t.Fatalf("expected from to fall back to username, got %q", sm.cfg.From)
	}
}

func TestSMTPMailerSendWritesMessage(t *testing.T) {
	client := &recordingSMTPClient{}
	mailer := newTestSMTPMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	}, client)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"user@example.com", "user@example.com"},
		Subject: "Your OTP",
		Body:    "Your OTP is: 123456",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if client.from != "no-reply@example.com" {
		t.Fatalf("unexpected MAIL FROM %q", client.from)
	}
	if len(client.rcpts) != 1 || client.rcpts[0] != "user@example.com" {
		t.Fatalf("unexpected recipients %v", client.rcpts)
	}
	if !client.quit {
		t.Fatal("expected QUIT to be sent")
	}

	body := client.data.String()
	for _, want := range []string{
		"From: no-reply@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Your OTP\r\n",
		"Date: Tue, 02 Jan 2024 03:04:05 +0000\r\n",
		"@example.com>\r\n",
		"\r\n\r\nYour OTP is: 123456",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in message, got %q", want, body)
		}
	}
}

func TestSMTPMailerSendPropagatesRcptError(t *testing.T) {
	client := &recordingSMTPClient{rcptFn: func(string) error { return errors.New("550 mailbox unavailable") }}
	mailer := newTestSMTPMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	}, client)

	err := mailer.Send(context.Background(), Message{To: []string{"user@example.com"}})
	if err == nil || !strings.Contains(err.Error(), "550 mailbox unavailable") {
		t.Fatalf("expected rcpt error, got %v", err)
	}
	if client.quit {
		t.Fatal("expected no QUIT after a failed RCPT")
	}
}
