package app

import (
	"strings"

	"github.com/charlesng35/otpauth/internal/database"
)

// ConnectionConfig converts DatabaseConfig into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:   strings.TrimSpace(c.Driver),
		URL:      strings.TrimSpace(c.URL),
		Path:     strings.TrimSpace(c.Path),
		Host:     strings.TrimSpace(c.Host),
		Port:     c.Port,
		User:     strings.TrimSpace(c.Username),
		Password: c.Password,
		Name:     strings.TrimSpace(c.Name),
		Options:  c.Options,
	}
}
