// Package catalog provides the HTTP client for the paginated ticker catalog
// API, including response decoding and error classification.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for catalog requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickersync_requests_total",
		Help: "Total catalog requests by response class",
	}, []string{"class"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickersync_request_duration_seconds",
		Help:    "Catalog request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	recordsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickersync_records_fetched_total",
		Help: "Total records returned by the catalog across all pages",
	})
)

// Config holds the client configuration.
type Config struct {
	// APIKey is the catalog credential, appended to every request target.
	APIKey string

	// UserAgent identifies this client to the remote service.
	UserAgent string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		UserAgent: "ticker-sync/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// Client fetches catalog pages. It is stateless across pages: the caller owns
// continuation handling and pacing.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig("").UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig("").Timeout
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage performs one catalog request against target and decodes the
// payload. The target comes from the cursor and never carries the credential;
// the client appends it here. Transport and decode failures are returned as
// errors; reported API errors (including throttling) come back as a Page for
// the caller to classify.
func (c *Client) FetchPage(ctx context.Context, target string) (*Page, error) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	authed, err := c.withCredential(target)
	if err != nil {
		return nil, fmt.Errorf("build request target: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authed, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("target", target).Msg("Fetching catalog page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		requestsTotal.WithLabelValues(string(ClassMalformed)).Inc()
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}

	class := page.Classify()
	requestsTotal.WithLabelValues(string(class)).Inc()

	switch class {
	case ClassOK:
		recordsFetched.Add(float64(len(page.Results)))
		c.logger.Debug().
			Int("results", len(page.Results)).
			Bool("has_next", page.NextURL != "").
			Msg("Catalog page fetched")
	case ClassThrottled:
		c.logger.Warn().Str("error", page.Err).Msg("Catalog throttled request")
	case ClassError:
		c.logger.Warn().Str("error", page.Err).Msg("Catalog reported error")
	case ClassMalformed:
		c.logger.Warn().Int("status_code", resp.StatusCode).Msg("Catalog response malformed")
	}

	return &page, nil
}

// withCredential appends the API key to target, preserving any query the
// continuation token already carries.
func (c *Client) withCredential(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target: %w", err)
	}

	q := u.Query()
	q.Set("apiKey", c.config.APIKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
