// Package fetcher drives a complete catalog retrieval: one page in flight at
// a time, a durable checkpoint committed before every request it enables, and
// a single hand-off of the finished record set to the downstream consumer.
//
// The loop survives being killed at any point. The persisted snapshot always
// names the next unfetched page and carries every record before it, so a
// restart neither re-counts a page already persisted nor skips the page the
// token points at.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TassioCarmo/ticker-sync/pkg/catalog"
	"github.com/TassioCarmo/ticker-sync/pkg/checkpoint"
	"github.com/TassioCarmo/ticker-sync/pkg/cursor"
	"github.com/TassioCarmo/ticker-sync/pkg/pacing"
	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// Prometheus metrics for run outcomes.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickersync_runs_total",
		Help: "Total runs by outcome",
	}, []string{"outcome"})

	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickersync_pages_total",
		Help: "Total pages successfully retrieved",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickersync_run_duration_seconds",
		Help:    "Full run duration in seconds",
		Buckets: []float64{1, 10, 60, 300, 900, 3600},
	})
)

// PageFetcher is the API-client collaborator: it fetches a single page for an
// opaque target built by the cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, target string) (*catalog.Page, error)
}

// Consumer receives the finished record set, exactly once per completed run.
type Consumer interface {
	Consume(ctx context.Context, recs []records.Record) error
}

// Config holds the engine configuration. All collaborators are injected; the
// engine keeps no process-wide state.
type Config struct {
	Fetcher  PageFetcher
	Store    checkpoint.Store
	Governor *pacing.Governor
	Consumer Consumer

	// Query holds the static listing parameters for a fresh start.
	Query cursor.Query

	// MaxThrottleRetries bounds consecutive throttled responses for a single
	// target before the run aborts. Zero means the default of 5.
	MaxThrottleRetries int
}

// Summary describes a completed run.
type Summary struct {
	Records  int
	Pages    int
	Requests int
	Resumed  bool
}

// Engine orchestrates the retrieval loop.
type Engine struct {
	config Config
	logger zerolog.Logger
}

// New creates an engine, validating that all collaborators are present.
func New(cfg Config) (*Engine, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if cfg.Governor == nil {
		return nil, fmt.Errorf("rate governor is required")
	}
	if cfg.Consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if cfg.Query.BaseURL == "" {
		return nil, fmt.Errorf("query base url is required")
	}
	if cfg.MaxThrottleRetries <= 0 {
		cfg.MaxThrottleRetries = 5
	}

	return &Engine{
		config: cfg,
		logger: log.With().Str("component", "fetch-engine").Logger(),
	}, nil
}

// Run drives the retrieval to completion or to a reported terminal failure.
// On completion the padded record set is handed to the consumer once and the
// checkpoint discarded; on failure the last durable checkpoint is preserved
// so the next invocation resumes instead of restarting.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()

	summary, err := e.run(ctx)
	if err != nil {
		runsTotal.WithLabelValues("aborted").Inc()
		return nil, err
	}

	runsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

func (e *Engine) run(ctx context.Context) (*Summary, error) {
	snap, err := e.config.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var recs []records.Record
	cur := cursor.Fresh()
	resumed := false

	if snap != nil {
		cur = cursor.Resume(snap.ContinuationToken)
		recs = snap.Records
		resumed = !cur.IsFresh() || len(recs) > 0
		e.logger.Info().
			Int("records", len(recs)).
			Bool("has_token", snap.ContinuationToken != "").
			Msg("Resuming from checkpoint")
	} else {
		e.logger.Info().Msg("Starting fresh")
		// The checkpoint lifecycle begins at the first page: commit the
		// empty fresh snapshot before the request it enables.
		if err := e.config.Store.Save(ctx, &checkpoint.Snapshot{}); err != nil {
			return nil, fmt.Errorf("save initial checkpoint: %w", err)
		}
	}

	target, err := cur.Resolve(e.config.Query)
	if err != nil {
		return nil, fmt.Errorf("resolve request target: %w", err)
	}

	var (
		requests  int
		pages     int
		throttles int
		wait      time.Duration
	)

	for {
		if wait > 0 {
			if err := e.config.Governor.Wait(ctx, wait); err != nil {
				return nil, &RunError{Target: target, Request: requests, Err: err}
			}
		}

		requests++
		page, err := e.config.Fetcher.FetchPage(ctx, target)
		if err != nil {
			return nil, &RunError{Target: target, Request: requests, Err: err}
		}

		switch page.Classify() {
		case catalog.ClassThrottled:
			// Same target, longer wait, checkpoint untouched.
			throttles++
			if throttles > e.config.MaxThrottleRetries {
				return nil, &RunError{
					Target:  target,
					Request: requests,
					Err: fmt.Errorf("%w: %d consecutive throttled responses",
						ErrThrottleRetriesExhausted, throttles),
				}
			}
			wait = e.config.Governor.OnThrottled()
			continue

		case catalog.ClassError:
			return nil, &RunError{
				Target:  target,
				Request: requests,
				Err:     &catalog.APIError{Class: catalog.ClassError, Message: page.Err, Target: target},
			}

		case catalog.ClassMalformed:
			return nil, &RunError{Target: target, Request: requests, Err: catalog.ErrMalformedResponse}
		}

		throttles = 0
		pages++
		pagesTotal.Inc()
		recs = append(recs, page.Results...)

		e.logger.Info().
			Int("page_results", len(page.Results)).
			Int("total_records", len(recs)).
			Int("request", requests).
			Msg("Page retrieved")

		cur = cur.Advance(page.NextURL)
		if cur.Done() {
			break
		}

		// Commit progress before the request this snapshot enables. A save
		// failure is fatal: proceeding would make a crash non-resumable.
		if err := e.config.Store.Save(ctx, &checkpoint.Snapshot{
			ContinuationToken: cur.Token(),
			Records:           recs,
		}); err != nil {
			return nil, fmt.Errorf("save checkpoint: %w", err)
		}

		target, err = cur.Resolve(e.config.Query)
		if err != nil {
			return nil, fmt.Errorf("resolve request target: %w", err)
		}
		wait = e.config.Governor.WaitInterval()
	}

	records.Pad(recs, records.Columns)

	if err := e.config.Consumer.Consume(ctx, recs); err != nil {
		// Output was not produced: keep the checkpoint so a re-run only
		// refetches the final page.
		return nil, fmt.Errorf("hand off records: %w", err)
	}

	if err := e.config.Store.Discard(ctx); err != nil {
		// The output exists; a stale checkpoint only causes a detectable
		// resume branch next run. Surface it and move on.
		e.logger.Warn().Err(err).Msg("Failed to discard checkpoint after completed run")
	}

	e.logger.Info().
		Int("records", len(recs)).
		Int("pages", pages).
		Int("requests", requests).
		Bool("resumed", resumed).
		Msg("Run completed")

	return &Summary{
		Records:  len(recs),
		Pages:    pages,
		Requests: requests,
		Resumed:  resumed,
	}, nil
}
