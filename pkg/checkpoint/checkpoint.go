// Package checkpoint persists the engine's resume state: the continuation
// token for the next unfetched page and the records collected so far. A saved
// snapshot is the contract that makes a crash at any point recoverable, so
// every backend provides atomic-replace semantics: a reader observes either
// the old or the new snapshot in full, never a partial mix.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for checkpoint operations.
var (
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickersync_checkpoint_saves_total",
		Help: "Total checkpoint saves by backend",
	}, []string{"backend"})

	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickersync_checkpoint_loads_total",
		Help: "Total checkpoint loads by backend and outcome",
	}, []string{"backend", "outcome"})

	discardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickersync_checkpoint_discards_total",
		Help: "Total checkpoint discards by backend",
	}, []string{"backend"})
)

// Snapshot is one durable checkpoint. ContinuationToken names the NEXT page
// to fetch ("" means the run starts fresh); Records holds every page before
// it, in fetch order.
type Snapshot struct {
	ContinuationToken string
	Records           []records.Record
	UpdatedAt         time.Time
}

// progressDoc is the wire shape of the persisted progress document.
type progressDoc struct {
	ContinuationToken string    `json:"continuation_token"`
	RecordCount       int       `json:"record_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store persists and restores snapshots.
//
// Save must be atomic-replace and durable before it returns: the engine will
// not issue the request a snapshot enables until the snapshot is committed.
// Load returns (nil, nil) when no snapshot exists. Discard removes all
// persisted state; discarding a non-existent snapshot is not an error.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Discard(ctx context.Context) error
}

// validateCount enforces the invariant that the progress document's record
// count is backed by persisted rows. Backends that write the progress document
// and the record set separately may race a crash between the two writes; rows
// beyond the claimed count belong to a newer, uncommitted save and are
// truncated, while fewer rows than claimed means the state is corrupt.
func validateCount(claimed int, recs []records.Record) ([]records.Record, error) {
	if len(recs) < claimed {
		return nil, fmt.Errorf("checkpoint corrupt: progress claims %d records, store holds %d", claimed, len(recs))
	}
	return recs[:claimed], nil
}
