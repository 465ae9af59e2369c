package app

import (
	"strings"
	"time"

	"github.com/charlesng35/otpauth/internal/services"
	"github.com/charlesng35/otpauth/pkg/mail"
)

// MailSettings converts EmailConfig to the mail package representation.
// Only the selected provider is enabled.
func (c EmailConfig) MailSettings() mail.Settings {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" {
		provider = mail.ProviderSMTP
	}

	return mail.Settings{
		Provider: provider,
		SMTP: mail.SMTPSettings{
			Enabled:  provider == mail.ProviderSMTP && c.SMTP.Enabled,
			Host:     strings.TrimSpace(c.SMTP.Host),
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     strings.TrimSpace(c.From),
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.SMTP.Timeout,
		},
		SendGrid: mail.SendGridSettings{
			Enabled:  provider == mail.ProviderSendGrid,
			APIKey:   c.SendGrid.APIKey,
			From:     strings.TrimSpace(c.From),
			FromName: c.SendGrid.FromName,
			Timeout:  c.SendGrid.Timeout,
		},
	}
}

// NotifierConfig builds the passcode email settings. lifetime is the
// passcode TTL quoted in the message body.
func (c EmailConfig) NotifierConfig(lifetime time.Duration) services.NotifierConfig {
	return services.NotifierConfig{
		From:     strings.TrimSpace(c.From),
		Subject:  c.Subject,
		SiteName: c.SiteName,
		Template: c.Template,
		Lifetime: lifetime,
	}
}
