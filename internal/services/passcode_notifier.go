package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/charlesng35/otpauth/pkg/mail"
)

const (
	// DefaultPasscodeSubject is the subject line of passcode emails.
	DefaultPasscodeSubject = "Your OTP for Project Achilles"
	// DefaultSiteName is shown in the passcode email body.
	DefaultSiteName = "Project Achilles"
)

// DefaultPasscodeTemplate renders the plain-text passcode email.
const DefaultPasscodeTemplate = `Your OTP is: {{.Code}}

Use this code to sign in to {{.SiteName}}. It is valid for {{printf "%.f" .Lifetime.Minutes}} minutes.

If you did not request a code, you can ignore this email.
`

// Notifier delivers a passcode to an address. Delivery is attempted once
// and any failure is returned to the caller.
type Notifier interface {
	Send(ctx context.Context, email, code string) error
}

// PasscodeEmail is the data passed to the passcode template.
type PasscodeEmail struct {
	Email    string
	Code     string
	SiteName string
	Lifetime time.Duration
}

// NotifierConfig customises the passcode email.
type NotifierConfig struct {
	From     string
	Subject  string
	SiteName string
	Template string
	Lifetime time.Duration
}

// PasscodeNotifier renders passcode emails and hands them to a mail.Mailer.
type PasscodeNotifier struct {
	mailer   mail.Mailer
	from     string
	subject  string
	siteName string
	lifetime time.Duration
	tmpl     *template.Template
}

// NewPasscodeNotifier parses the template up front so a broken template
// fails at startup rather than on the first send.
func NewPasscodeNotifier(mailer mail.Mailer, cfg NotifierConfig) (*PasscodeNotifier, error) {
	if mailer == nil {
		return nil, errors.New("passcode notifier: mailer is required")
	}

	body := cfg.Template
	if strings.TrimSpace(body) == "" {
		body = DefaultPasscodeTemplate
	}
	tmpl, err := template.New("passcode").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("passcode notifier: parse template: %w", err)
	}

	n := &PasscodeNotifier{
		mailer:   mailer,
		from:     strings.TrimSpace(cfg.From),
		subject:  cfg.Subject,
		siteName: cfg.SiteName,
		lifetime: cfg.Lifetime,
		tmpl:     tmpl,
	}
	if n.subject == "" {
		n.subject = DefaultPasscodeSubject
	}
	if n.siteName == "" {
		n.siteName = DefaultSiteName
	}
	if n.lifetime <= 0 {
		n.lifetime = DefaultPasscodeTTL
	}
	return n, nil
}

// Send renders and delivers the passcode email.
func (n *PasscodeNotifier) Send(ctx context.Context, email, code string) error {
	var body bytes.Buffer
	if err := n.tmpl.Execute(&body, PasscodeEmail{
		Email:    email,
		Code:     code,
		SiteName: n.siteName,
		Lifetime: n.lifetime,
	}); err != nil {
		return fmt.Errorf("passcode notifier: render: %w", err)
	}

	return n.mailer.Send(ctx, mail.Message{
		From:    n.from,
		To:      []string{email},
		Subject: n.subject,
		Body:    body.String(),
	})
}
