package database

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

// buildMySQLDSN renders a go-sql-driver DSN. A mysql:// URL is decomposed
// into the discrete fields first; any other URL value is used verbatim.
func buildMySQLDSN(cfg Config) (string, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		if !strings.HasPrefix(strings.ToLower(raw), "mysql://") {
			return raw, nil
		}
		parsed, err := fromMySQLURL(raw)
		if err != nil {
			return "", err
		}
		cfg = parsed
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	user := cfg.User
	if cfg.Password != "" {
		user = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
	}

	baseOptions := map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "UTC",
	}

	for key, value := range cfg.Options {
		baseOptions[key] = value
	}

	keys := make([]string, 0, len(baseOptions))
	for key := range baseOptions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	opts := make([]string, 0, len(keys))
	for _, key := range keys {
		opts = append(opts, fmt.Sprintf("%s=%s", key, baseOptions[key]))
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", user, host, port, cfg.Name, strings.Join(opts, "&")), nil
}

func fromMySQLURL(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse mysql url: %w", err)
	}

	cfg := Config{
		Driver: DriverMySQL,
		Host:   u.Hostname(),
		Name:   strings.TrimPrefix(u.Path, "/"),
	}
	if port := u.Port(); port != "" {
		cfg.Port, err = strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse mysql port: %w", err)
		}
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	if query := u.Query(); len(query) > 0 {
		cfg.Options = make(map[string]string, len(query))
		for key := range query {
			cfg.Options[key] = query.Get(key)
		}
	}
	return cfg, nil
}
