package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Minute), mr
}

func TestFetchJSONCaches(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var first, second []string
	require.NoError(t, store.FetchJSON(ctx, "k", &first, loader))
	require.NoError(t, store.FetchJSON(ctx, "k", &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"a", "b"}, second)
	require.True(t, mr.Exists("k"))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.FetchJSON(ctx, "k", &second, loader))
	require.Equal(t, 2, calls)
}

func TestFetchBytesLoaderError(t *testing.T) {
	store, mr := newTestStore(t)
	_, err := store.FetchBytes(context.Background(), "k", func(context.Context) ([]byte, error) {
		return nil, errors.New("backend down")
	})
	require.Error(t, err)
	require.False(t, mr.Exists("k"))
}

func TestGetSetDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var out map[string]int
	require.ErrorIs(t, store.GetJSON(ctx, "state", &out), ErrMiss)
	require.NoError(t, store.SetJSON(ctx, "state", map[string]int{"page": 2}, 0))
	require.NoError(t, store.GetJSON(ctx, "state", &out))
	require.Equal(t, 2, out["page"])
	require.NoError(t, store.Delete(ctx, "state"))
	require.ErrorIs(t, store.GetJSON(ctx, "state", &out), ErrMiss)
}

func TestNilStoreFallsBackToLoader(t *testing.T) {
	var store *Store
	var out []int
	require.NoError(t, store.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return []int{1}, nil
	}))
	require.Equal(t, []int{1}, out)
	require.NoError(t, store.SetJSON(context.Background(), "k", out, 0))
	require.NoError(t, store.Delete(context.Background(), "k"))
	require.False(t, store.Enabled())
}
