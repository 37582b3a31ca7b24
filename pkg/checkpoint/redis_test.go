package checkpoint

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, run string) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := NewRedisStore(client, run)
	require.NoError(t, err)

	return store
}

func TestRedisStore_Conformance(t *testing.T) {
	exerciseStore(t, newTestRedisStore(t, ""))
}

func TestNewRedisStore_ClientRequired(t *testing.T) {
	_, err := NewRedisStore(nil, "run")
	require.Error(t, err)
}

func TestRedisStore_KeyNamespacedByRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	a, err := NewRedisStore(client, "run-a")
	require.NoError(t, err)
	b, err := NewRedisStore(client, "run-b")
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, testSnapshot()))

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, snap)

	require.True(t, mr.Exists("tickersync:checkpoint:run-a"))
	require.False(t, mr.Exists("tickersync:checkpoint:run-b"))
}
