package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/charlesng35/otpauth/internal/database"
	"github.com/charlesng35/otpauth/pkg/crypto"
	"github.com/charlesng35/otpauth/pkg/mail"
)

// Validate reports every setting that prevents the service from starting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	var errs error

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		errs = multierr.Append(errs, errors.New("auth.jwt.secret is required"))
	}
	if cfg.Auth.JWT.TTL < 0 {
		errs = multierr.Append(errs, errors.New("auth.jwt.ttl must not be negative"))
	}
	if n := cfg.Auth.Passcode.Length; n < 0 || n > crypto.MaxCodeDigits {
		errs = multierr.Append(errs, fmt.Errorf("auth.passcode.length must be between 0 (default) and %d", crypto.MaxCodeDigits))
	}
	if cfg.Auth.Passcode.TTL < 0 {
		errs = multierr.Append(errs, errors.New("auth.passcode.ttl must not be negative"))
	}

	errs = multierr.Append(errs, validateDatabase(cfg.Database))
	errs = multierr.Append(errs, validateEmail(cfg.Email))

	if purge := cfg.Maintenance.PasscodePurge; purge.Enabled {
		if _, err := cron.ParseStandard(purge.Schedule); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("maintenance.passcode_purge.schedule: %w", err))
		}
		if purge.Retention < 0 {
			errs = multierr.Append(errs, errors.New("maintenance.passcode_purge.retention must not be negative"))
		}
	}

	if errs != nil {
		return fmt.Errorf("config: invalid configuration: %w", errs)
	}
	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	conn := cfg.ConnectionConfig()
	driver, err := database.ResolveDriver(conn)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	hasURL := strings.TrimSpace(cfg.URL) != ""
	switch driver {
	case database.DriverSQLite:
		// An explicit sqlite driver may rely on the default file path.
		if !hasURL && strings.TrimSpace(cfg.Driver) == "" {
			return errors.New("database.url is required")
		}
	case database.DriverMongo:
		if !hasURL {
			return errors.New("database.url is required for mongodb")
		}
	default:
		if !hasURL && (strings.TrimSpace(cfg.Host) == "" || strings.TrimSpace(cfg.Name) == "") {
			return errors.New("database.url is required")
		}
	}
	return nil
}

func validateEmail(cfg EmailConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", mail.ProviderSMTP:
		if !cfg.SMTP.Enabled {
			return nil
		}
		var errs error
		if strings.TrimSpace(cfg.SMTP.Host) == "" {
			errs = multierr.Append(errs, errors.New("email.smtp.host is required"))
		}
		if cfg.SMTP.Port <= 0 {
			errs = multierr.Append(errs, errors.New("email.smtp.port is required"))
		}
		if strings.TrimSpace(cfg.From) == "" && strings.TrimSpace(cfg.SMTP.Username) == "" {
			errs = multierr.Append(errs, errors.New("email.from or email.smtp.username is required"))
		}
		return errs
	case mail.ProviderSendGrid:
		var errs error
		if strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
			errs = multierr.Append(errs, errors.New("email.sendgrid.api_key is required"))
		}
		if strings.TrimSpace(cfg.From) == "" {
			errs = multierr.Append(errs, errors.New("email.from is required for sendgrid"))
		}
		return errs
	default:
		return fmt.Errorf("email.provider %q is not supported", cfg.Provider)
	}
}
