//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/TassioCarmo/ticker-sync/internal/testutil"
	"github.com/TassioCarmo/ticker-sync/pkg/catalog"
	"github.com/TassioCarmo/ticker-sync/pkg/checkpoint"
	"github.com/TassioCarmo/ticker-sync/pkg/cursor"
	"github.com/TassioCarmo/ticker-sync/pkg/fetcher"
	"github.com/TassioCarmo/ticker-sync/pkg/pacing"
	"github.com/TassioCarmo/ticker-sync/pkg/sink"
)

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}

	return client, cleanup
}

func TestRun_RedisCheckpointStore(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	mock := testutil.NewMockCatalog([][]map[string]any{
		testutil.TickerPage("AAA"),
		testutil.TickerPage("BBB"),
		testutil.TickerPage("CCC"),
	})
	defer mock.Close()
	mock.FailAt(2, "invalid query")

	client, err := catalog.New(catalog.Config{APIKey: "test-key", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	store, err := checkpoint.NewRedisStore(redisClient, "integration")
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	output := filepath.Join(t.TempDir(), "tickers.csv")
	out, err := sink.NewCSVSink(output)
	if err != nil {
		t.Fatalf("NewCSVSink() error = %v", err)
	}

	newEngine := func() *fetcher.Engine {
		engine, err := fetcher.New(fetcher.Config{
			Fetcher: client,
			Store:   store,
			Governor: pacing.NewGovernor(pacing.Config{
				RequestInterval: time.Millisecond,
				ThrottleBackoff: time.Millisecond,
			}, zerolog.Nop()),
			Consumer: out,
			Query: cursor.Query{
				BaseURL:    mock.URL(),
				Market:     "stocks",
				ActiveOnly: true,
				Order:      "asc",
				Limit:      1,
				Sort:       "ticker",
			},
		})
		if err != nil {
			t.Fatalf("fetcher.New() error = %v", err)
		}
		return engine
	}

	// Abort at page 3: the checkpoint lives in Redis.
	if _, err := newEngine().Run(ctx); err == nil {
		t.Fatal("Run() should abort on the injected API error")
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap == nil || len(snap.Records) != 2 {
		t.Fatalf("checkpoint = %+v, want 2 records", snap)
	}

	// Resume and complete; checkpoint is gone afterwards.
	mock.ClearFailure(2)
	summary, err := newEngine().Run(ctx)
	if err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	if !summary.Resumed || summary.Records != 3 {
		t.Errorf("Summary = %+v, want resumed with 3 records", summary)
	}

	snap, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap != nil {
		t.Errorf("checkpoint after completion = %+v, want none", snap)
	}
}
