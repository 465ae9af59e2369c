package app

import (
	"time"

	"github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// PasscodeLifetime returns the configured passcode TTL or the default.
func (c AuthConfig) PasscodeLifetime() time.Duration {
	if c.Passcode.TTL <= 0 {
		return services.DefaultPasscodeTTL
	}
	return c.Passcode.TTL
}

// PasscodeOptions converts the passcode settings into service options.
func (c AuthConfig) PasscodeOptions() []services.PasscodeAuthOption {
	opts := []services.PasscodeAuthOption{
		services.WithPasscodeTTL(c.PasscodeLifetime()),
	}
	if c.Passcode.Length > 0 {
		opts = append(opts, services.WithPasscodeLength(c.Passcode.Length))
	}
	return opts
}
