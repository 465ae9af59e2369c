package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// PasscodesIssued counts send-otp outcomes (success|store_error|delivery_error).
	PasscodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otpauth_passcodes_issued_total",
			Help: "Total number of one-time passcode issue attempts",
		},
		[]string{"result"},
	)

	// AuthAttempts records register/login/admin_login outcomes by flow and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otpauth_auth_attempts_total",
			Help: "Total number of passcode authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// PasscodesPurged counts expired passcodes removed by the maintenance job.
	PasscodesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otpauth_passcodes_purged_total",
			Help: "Total number of expired passcodes removed by maintenance",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otpauth_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
