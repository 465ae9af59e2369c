package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/otpauth/internal/api"
	"github.com/charlesng35/otpauth/internal/app"
	"github.com/charlesng35/otpauth/internal/app/maintenance"
	iauth "github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/internal/monitoring"
	"github.com/charlesng35/otpauth/internal/monitoring/checks"
	"github.com/charlesng35/otpauth/internal/services"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Store   store.Store
	Cleaner *maintenance.Cleaner
	Health  *monitoring.HealthManager
	Router  *gin.Engine
}

// storeOpener is swapped in tests.
var storeOpener = app.OpenStore

// bootstrapRuntime connects the store and wires mail delivery, token
// signing, the passcode service, health probes and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background(), log); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Store, err = storeOpener(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	mailSettings := cfg.Email.MailSettings()
	mailer, err := mail.New(mailSettings)
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	log.Info("mail delivery configured", zap.String("provider", mailSettings.Provider))

	lifetime := cfg.Auth.PasscodeLifetime()
	notifier, err := services.NewPasscodeNotifier(mailer, cfg.Email.NotifierConfig(lifetime))
	if err != nil {
		return nil, fmt.Errorf("initialise passcode notifier: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	svc, err := services.NewPasscodeAuthService(stack.Store, stack.Store, notifier, jwtSvc, cfg.Auth.PasscodeOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise passcode service: %w", err)
	}

	stack.Health = monitoring.NewHealthManager()
	stack.Health.RegisterReadiness(checks.Store(stack.Store, cfg.Monitoring.Health.Timeout))

	if purge := cfg.Maintenance.PasscodePurge; purge.Enabled {
		tracker := monitoring.NewJobTracker()
		stack.Cleaner, err = maintenance.NewCleaner(stack.Store,
			maintenance.WithSchedule(purge.Schedule),
			maintenance.WithRetention(purge.Retention),
			maintenance.WithTracker(tracker),
		)
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance jobs: %w", err)
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		stack.Health.RegisterReadiness(checks.Maintenance(tracker, 0))
	}

	stack.Router, err = api.NewRouter(svc, jwtSvc, cfg, stack.Health)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases the store.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var err error
	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
		}
		if _, runErr := s.Cleaner.RunOnce(ctx); runErr != nil {
			err = multierr.Append(err, fmt.Errorf("maintenance shutdown cleanup: %w", runErr))
		}
	}

	if s.Store != nil {
		if closeErr := s.Store.Close(ctx); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close store: %w", closeErr))
		} else {
			log.Debug("store closed")
		}
	}

	return err
}
