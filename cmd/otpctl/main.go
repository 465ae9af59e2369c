// Command otpctl performs operator tasks against the account and passcode
// store: promoting administrators and purging expired passcodes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charlesng35/otpauth/internal/app"
	"github.com/charlesng35/otpauth/internal/app/maintenance"
	"github.com/charlesng35/otpauth/internal/models"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/logger"
)

const usage = `usage: otpctl [-config path] <command> [flags]

commands:
  grant-admin -email <address>      flag an account as administrator
  revoke-admin -email <address>     clear the administrator flag
  purge-passcodes [-retention 24h]  delete passcodes expired before now minus retention
`

// storeOpener is swapped in tests.
var storeOpener = app.OpenStore

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("otpctl", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("command is required")
	}

	var paths []string
	if p := strings.TrimSpace(configPath); p != "" {
		paths = append(paths, p)
	}
	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(app.ServerConfig{LogLevel: "warn"}); err != nil {
		return err
	}
	defer logger.Sync() // best effort

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "grant-admin":
		return withStore(ctx, cfg, func(st store.Store) error { return setAdmin(ctx, st, rest, true, out) })
	case "revoke-admin":
		return withStore(ctx, cfg, func(st store.Store) error { return setAdmin(ctx, st, rest, false, out) })
	case "purge-passcodes":
		return withStore(ctx, cfg, func(st store.Store) error { return purge(ctx, st, cfg, rest, out) })
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func withStore(ctx context.Context, cfg *app.Config, fn func(store.Store) error) (err error) {
	st, err := storeOpener(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(context.Background()); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}()
	return fn(st)
}

func setAdmin(ctx context.Context, st store.AccountStore, args []string, isAdmin bool, out io.Writer) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}

	account, err := st.SetAdmin(ctx, models.NormalizeEmail(*email), isAdmin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no account registered for %s", *email)
		}
		return err
	}

	fmt.Fprintf(out, "%s (%s) isAdmin=%t\n", account.Email, account.ID, account.IsAdmin)
	return nil
}

func purge(ctx context.Context, st store.PasscodeStore, cfg *app.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("purge-passcodes", flag.ContinueOnError)
	fs.SetOutput(out)
	retention := fs.Duration("retention", cfg.Maintenance.PasscodePurge.Retention, "keep codes that expired within this window")
	if err := fs.Parse(args); err != nil {
		return err
	}

	removed, err := maintenance.PurgeExpiredPasscodes(ctx, st, time.Now(), *retention)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %d expired passcodes\n", removed)
	return nil
}
