package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSqliteStore(t *testing.T, run string) *SqliteStore {
	t.Helper()

	store, err := NewSqliteStore(SqliteOptions{
		Path: filepath.Join(t.TempDir(), "checkpoints.db"),
		Run:  run,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSqliteStore_Conformance(t *testing.T) {
	exerciseStore(t, newTestSqliteStore(t, ""))
}

func TestNewSqliteStore_PathRequired(t *testing.T) {
	_, err := NewSqliteStore(SqliteOptions{})
	require.Error(t, err)
}

func TestSqliteStore_RunsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	ctx := context.Background()

	a, err := NewSqliteStore(SqliteOptions{Path: path, Run: "run-a"})
	require.NoError(t, err)
	defer a.Close()

	b, err := NewSqliteStore(SqliteOptions{Path: path, Run: "run-b"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, testSnapshot()))

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, snap, "run-b must not see run-a's checkpoint")

	require.NoError(t, b.Discard(ctx))

	snap, err = a.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap, "discarding run-b must not remove run-a's checkpoint")
}
