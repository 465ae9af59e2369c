package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/charlesng35/otpauth/internal/monitoring"
	"github.com/charlesng35/otpauth/internal/store"
	"github.com/charlesng35/otpauth/pkg/logger"
	"github.com/charlesng35/otpauth/pkg/metrics"
)

const (
	// JobPasscodePurge names the expired passcode purge in health reports.
	JobPasscodePurge = "passcode_purge"

	defaultPurgeSpec      = "@hourly"
	defaultPurgeRetention = 24 * time.Hour
	defaultRunTimeout     = time.Minute
)

// Cleaner periodically removes passcodes that expired longer than the
// retention window ago. Verification never depends on it: an expired code
// is rejected whether or not it has been purged.
type Cleaner struct {
	passcodes store.PasscodeStore
	tracker   *monitoring.JobTracker
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration
	schedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cutoff calculations.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetention adjusts how long expired passcodes are kept before purging.
func WithRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention >= 0 {
			cleaner.retention = retention
		}
	}
}

// WithSchedule overrides the cron expression of the purge job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithTracker reports every run to the tracker read by the health probe.
func WithTracker(tracker *monitoring.JobTracker) Option {
	return func(cleaner *Cleaner) {
		cleaner.tracker = tracker
	}
}

// NewCleaner constructs a Cleaner with an hourly schedule and a 24h retention.
func NewCleaner(passcodes store.PasscodeStore, opts ...Option) (*Cleaner, error) {
	if passcodes == nil {
		return nil, errors.New("maintenance: passcode store is required")
	}

	cleaner := &Cleaner{
		passcodes: passcodes,
		now:       time.Now,
		retention: defaultPurgeRetention,
		schedule:  defaultPurgeSpec,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	if cleaner.tracker != nil {
		cleaner.tracker.Register(JobPasscodePurge)
	}

	return cleaner, nil
}

// Start registers the purge job and launches the scheduler.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
		defer cancel()
		if _, err := c.RunOnce(ctx); err != nil {
			c.log.Warn("passcode purge failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	c.log.Info("passcode purge scheduled",
		zap.String("schedule", c.schedule),
		zap.Duration("retention", c.retention),
	)
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once
// any running job has completed.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return c.cron.Stop()
}

// RunOnce purges passcodes that expired before now minus the retention.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	removed, err := PurgeExpiredPasscodes(ctx, c.passcodes, c.now(), c.retention)
	if c.tracker != nil {
		c.tracker.Record(JobPasscodePurge, removed, err, time.Since(start))
	}
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		c.log.Info("expired passcodes purged", zap.Int64("removed", removed))
	}
	return removed, nil
}

// PurgeExpiredPasscodes deletes codes that expired before now minus retention
// and returns how many were removed.
func PurgeExpiredPasscodes(ctx context.Context, passcodes store.PasscodeStore, now time.Time, retention time.Duration) (int64, error) {
	if passcodes == nil {
		return 0, errors.New("purge passcodes: store is required")
	}
	if retention < 0 {
		retention = 0
	}

	removed, err := passcodes.PurgeExpiredPasscodes(ctx, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge passcodes: %w", err)
	}
	metrics.PasscodesPurged.Add(float64(removed))
	return removed, nil
}
