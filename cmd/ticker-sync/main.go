package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/TassioCarmo/ticker-sync/pkg/catalog"
	"github.com/TassioCarmo/ticker-sync/pkg/checkpoint"
	"github.com/TassioCarmo/ticker-sync/pkg/cursor"
	"github.com/TassioCarmo/ticker-sync/pkg/fetcher"
	"github.com/TassioCarmo/ticker-sync/pkg/logging"
	"github.com/TassioCarmo/ticker-sync/pkg/pacing"
	"github.com/TassioCarmo/ticker-sync/pkg/sink"
)

func main() {
	every := flag.Duration("every", 0, "re-run the job on this interval (0 = run once)")
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := getEnv("METRICS_ADDR", ""); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	}

	engine, cleanup, err := buildEngine(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Setup failed")
		os.Exit(1)
	}
	defer cleanup()

	if *every <= 0 {
		if err := runOnce(ctx, engine); err != nil {
			logger.Error().Err(err).Msg("Run failed")
			os.Exit(1)
		}
		return
	}

	// Scheduler mode: one run immediately, then one per tick. A failed run
	// leaves its checkpoint behind, so the next tick resumes instead of
	// restarting.
	logger.Info().Dur("every", *every).Msg("Running on a schedule")
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx, engine); err != nil {
			logger.Error().Err(err).Msg("Run failed - will resume next tick")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, engine *fetcher.Engine) error {
	summary, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	logger := logging.NewLogger("main")
	logger.Info().
		Int("records", summary.Records).
		Int("pages", summary.Pages).
		Int("requests", summary.Requests).
		Bool("resumed", summary.Resumed).
		Msg("Job finished")

	return nil
}

// buildEngine wires the engine from environment configuration. The returned
// cleanup closes whatever backend connections were opened.
func buildEngine(ctx context.Context) (*fetcher.Engine, func(), error) {
	cleanup := func() {}

	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return nil, cleanup, fmt.Errorf("POLYGON_API_KEY is required")
	}

	client, err := catalog.New(catalog.DefaultConfig(apiKey))
	if err != nil {
		return nil, cleanup, fmt.Errorf("create catalog client: %w", err)
	}

	store, storeCleanup, err := buildStore(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = storeCleanup

	out, sinkCleanup, err := buildSink(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	prev := cleanup
	cleanup = func() { sinkCleanup(); prev() }

	governor := pacing.NewGovernor(pacing.Config{
		RequestInterval: getDurationEnv("REQUEST_INTERVAL", 12*time.Second),
		ThrottleBackoff: getDurationEnv("THROTTLE_BACKOFF", 60*time.Second),
	}, logging.NewLogger("governor"))

	engine, err := fetcher.New(fetcher.Config{
		Fetcher:  client,
		Store:    store,
		Governor: governor,
		Consumer: out,
		Query: cursor.Query{
			BaseURL:    getEnv("CATALOG_BASE_URL", "https://api.polygon.io/v3/reference/tickers"),
			Market:     getEnv("CATALOG_MARKET", "stocks"),
			ActiveOnly: true,
			Order:      "asc",
			Limit:      getIntEnv("PAGE_LIMIT", 1000),
			Sort:       "ticker",
		},
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("create engine: %w", err)
	}

	return engine, cleanup, nil
}

func buildStore(ctx context.Context) (checkpoint.Store, func(), error) {
	noop := func() {}
	run := getEnv("RUN_NAME", "default")

	switch backend := getEnv("CHECKPOINT_BACKEND", "file"); backend {
	case "file":
		store, err := checkpoint.NewFileStore(getEnv("CHECKPOINT_DIR", ".ticker-sync"))
		return store, noop, err

	case "sqlite":
		store, err := checkpoint.NewSqliteStore(checkpoint.SqliteOptions{
			Path: getEnv("CHECKPOINT_DB", "checkpoints.db"),
			Run:  run,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, func() { store.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: getEnv("REDIS_URL", "localhost:6379"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}
		store, err := checkpoint.NewRedisStore(client, run)
		if err != nil {
			client.Close()
			return nil, noop, err
		}
		return store, func() { client.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}

func buildSink(ctx context.Context) (sink.Sink, func(), error) {
	noop := func() {}

	switch kind := getEnv("SINK", "csv"); kind {
	case "csv":
		out, err := sink.NewCSVSink(getEnv("OUTPUT_FILE", "tickers.csv"))
		return out, noop, err

	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL is required for the postgres sink")
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		out, err := sink.NewPostgresSink(pool, getEnv("SINK_TABLE", "stock_tickers"))
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return out, func() { pool.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown sink %q", kind)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
