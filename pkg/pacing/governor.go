// Package pacing enforces the remote catalog's request quota. It implements a
// two-tier fixed policy: a minimum spacing between consecutive requests on the
// happy path, and a longer coarse backoff when the remote reports that the
// request rate was exceeded.
package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pacing decisions.
var (
	intervalWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickersync_interval_waits_total",
		Help: "Total number of inter-request pacing waits",
	})

	throttleBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickersync_throttle_backoffs_total",
		Help: "Total number of backoffs taken after a throttled response",
	})

	waitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickersync_pacing_wait_seconds",
		Help:    "Pacing wait duration in seconds by reason",
		Buckets: []float64{1, 5, 12, 30, 60, 120},
	}, []string{"reason"})
)

// Config holds the governor's policy constants.
type Config struct {
	// RequestInterval is the minimum spacing between consecutive requests.
	// The remote free tier allows 5 requests per minute.
	RequestInterval time.Duration

	// ThrottleBackoff is the fixed wait after a throttled response before
	// retrying the same target.
	ThrottleBackoff time.Duration
}

// DefaultConfig returns the policy for the remote's published free-tier quota.
func DefaultConfig() Config {
	return Config{
		RequestInterval: 12 * time.Second,
		ThrottleBackoff: 60 * time.Second,
	}
}

// Governor decides how long to pause between catalog requests.
type Governor struct {
	config Config
	logger zerolog.Logger
}

// NewGovernor creates a governor, falling back to defaults for unset fields.
func NewGovernor(cfg Config, logger zerolog.Logger) *Governor {
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultConfig().RequestInterval
	}
	if cfg.ThrottleBackoff <= 0 {
		cfg.ThrottleBackoff = DefaultConfig().ThrottleBackoff
	}

	return &Governor{
		config: cfg,
		logger: logger,
	}
}

// WaitInterval returns the spacing to apply before the next request on the
// happy path. Fixed, independent of response content.
func (g *Governor) WaitInterval() time.Duration {
	intervalWaitsTotal.Inc()
	waitSeconds.WithLabelValues("interval").Observe(g.config.RequestInterval.Seconds())
	return g.config.RequestInterval
}

// OnThrottled returns the backoff to apply before retrying the same target
// after the remote signalled that the request rate was exceeded.
func (g *Governor) OnThrottled() time.Duration {
	throttleBackoffsTotal.Inc()
	waitSeconds.WithLabelValues("throttle").Observe(g.config.ThrottleBackoff.Seconds())

	g.logger.Warn().
		Dur("backoff", g.config.ThrottleBackoff).
		Msg("Rate limit hit - backing off before retrying same target")

	return g.config.ThrottleBackoff
}

// Wait sleeps for d with context-cancellation support.
func (g *Governor) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	g.logger.Debug().Dur("wait", d).Msg("Pacing wait")

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacing wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
