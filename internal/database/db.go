package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongodb"
)

// Config contains database connection options.
type Config struct {
	Driver   string
	URL      string // Connection string or DSN; takes precedence over the discrete fields
	Path     string // SQLite database path when Driver == sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Options  map[string]string
}

// ResolveDriver returns the configured driver, inferring it from the URL
// scheme when unset. With neither a driver nor a URL it falls back to SQLite.
func ResolveDriver(cfg Config) (string, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "sqlite3":
		driver = DriverSQLite
	case "postgresql":
		driver = DriverPostgres
	case "mongo":
		driver = DriverMongo
	}
	if driver != "" {
		return driver, nil
	}

	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return DriverSQLite, nil
	}
	if strings.HasPrefix(raw, "file:") {
		return DriverSQLite, nil
	}

	scheme, _, found := strings.Cut(raw, "://")
	if !found {
		return "", fmt.Errorf("cannot infer database driver from %q", redact(raw))
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "mysql":
		return DriverMySQL, nil
	case "sqlite", "file":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

// Open initialises a gorm.DB using the provided configuration. MongoDB is
// served by OpenMongo instead.
func Open(cfg Config) (*gorm.DB, error) {
	driver, err := ResolveDriver(cfg)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		return openSQLite(cfg)
	case DriverPostgres:
		return openPostgres(cfg)
	case DriverMySQL:
		return openMySQL(cfg)
	case DriverMongo:
		return nil, errors.New("mongodb is not a SQL driver; use OpenMongo")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// redact hides the password component of a connection URL for error messages.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
