package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TassioCarmo/ticker-sync/pkg/records"
)

// testSnapshot returns a snapshot with two partial records and a continuation.
func testSnapshot() *Snapshot {
	return &Snapshot{
		ContinuationToken: "https://api.example.com/next?cursor=tok1",
		Records: []records.Record{
			{"ticker": "AAA", "name": "Alpha Corp", "active": "true"},
			{"ticker": "BBB"},
		},
	}
}

// exerciseStore runs the conformance checks every backend must pass.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Empty store: Load yields nothing, Discard is a no-op.
	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, snap)
	require.NoError(t, store.Discard(ctx))

	// Save then load round-trips token and records.
	want := testSnapshot()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.ContinuationToken, got.ContinuationToken)
	require.Equal(t, want.Records, got.Records)

	// Absent fields stay absent across the round trip.
	_, present := got.Records[1].Get("name")
	require.False(t, present, "absent field must not materialize")

	// A later save replaces the earlier snapshot.
	next := &Snapshot{
		ContinuationToken: "",
		Records: append(append([]records.Record{}, want.Records...),
			records.Record{"ticker": "CCC"}),
	}
	require.NoError(t, store.Save(ctx, next))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Records, 3)
	require.Empty(t, got.ContinuationToken)

	// Discard removes everything.
	require.NoError(t, store.Discard(ctx))
	snap, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestSnapshot_EmptyRecords(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	// A fresh-run checkpoint has no records and no token.
	require.NoError(t, store.Save(ctx, &Snapshot{}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got.ContinuationToken)
	require.Empty(t, got.Records)
}
