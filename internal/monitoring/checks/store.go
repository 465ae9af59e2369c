package checks

import (
	"context"
	"time"

	"github.com/charlesng35/otpauth/internal/monitoring"
)

const defaultStoreTimeout = 2 * time.Second

// Pinger is satisfied by every store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store returns a readiness probe that pings the account and passcode store.
func Store(store Pinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("store", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultStoreTimeout))
		defer cancel()

		result := monitoring.ResultFromError("store", store.Ping(probeCtx), time.Since(start))
		// A store that cannot answer within the timeout cannot serve requests either.
		if result.Status == monitoring.StatusDegraded {
			result.Status = monitoring.StatusDown
		}
		return result
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
