// Package sink holds the downstream consumers a completed run hands its
// record set to: a flat CSV file and a warehouse-style Postgres table.
package sink

import (
	"context"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// Sink receives the finished, padded record set of a successful run.
type Sink interface {
	Consume(ctx context.Context, recs []records.Record) error
}
