package flow

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith-ai/flowsmith/types"
)

func newTestRedisState(t *testing.T) *RedisState {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisState(client, "test:state", nil)
}

func TestRedisStateSetGet(t *testing.T) {
	s := newTestRedisState(t)

	require.NoError(t, s.Ping(context.Background()))

	assert.False(t, s.Has("k"))
	assert.Equal(t, "fallback", s.Get("k", "fallback"))

	s.Set("k", "v")
	assert.True(t, s.Has("k"))
	assert.Equal(t, "v", s.Get("k", nil))

	s.Set("n", 42)
	assert.Equal(t, float64(42), s.Get("n", nil), "numbers decode as float64 from JSON")

	s.Set("flag", true)
	assert.Equal(t, true, s.Get("flag", nil))
}

func TestRedisStateAppend(t *testing.T) {
	s := newTestRedisState(t)

	require.NoError(t, s.Append("items", "a"))
	require.NoError(t, s.Append("items", "b"))
	assert.Equal(t, []any{"a", "b"}, s.Get("items", nil))

	// Set replaces a list wholesale.
	s.Set("items", "scalar")
	assert.Equal(t, "scalar", s.Get("items", nil))

	err := s.Append("items", "c")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrStateType))
}

func TestRedisStateIncrement(t *testing.T) {
	s := newTestRedisState(t)

	n, err := s.Increment("count", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, n)

	n, err = s.Increment("count", 2.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.5, n)

	n, err = s.Increment("seeded", 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 105.0, n)

	s.Set("word", "ten")
	_, err = s.Increment("word", 1, 0)
	assert.True(t, types.IsCode(err, types.ErrStateType))
}

func TestRedisStateSnapshotClear(t *testing.T) {
	s := newTestRedisState(t)

	s.Set("a", "one")
	require.NoError(t, s.Append("list", 1))
	_, err := s.Increment("n", 2, 0)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "one", snap["a"])
	assert.Equal(t, []any{float64(1)}, snap["list"])
	assert.Equal(t, float64(2), snap["n"])

	s.Clear()
	assert.Empty(t, s.Snapshot())
	assert.False(t, s.Has("a"))
}
