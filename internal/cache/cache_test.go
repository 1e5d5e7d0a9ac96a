package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "PM-KISAN", Count: calls}
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, "k", &first, time.Minute, fetch(&first)))
	var second payload
	require.NoError(t, Aside(ctx, "k", &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("k"))

	mr.FastForward(2 * time.Minute)
	var third payload
	require.NoError(t, Aside(ctx, "k", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	boom := errors.New("boom")

	var dest payload
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest payload
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisDownDegradesToFetch(t *testing.T) {
	mr := useMiniredis(t)
	mr.Close()

	calls := 0
	var dest payload
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestInvalidateSchemes(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, SchemeListKey(), []string{"a"}, time.Minute))
	require.NoError(t, SetJSON(ctx, SchemeKey(4), "a", time.Minute))
	InvalidateSchemes(ctx, 4)

	assert.False(t, mr.Exists(SchemeListKey()))
	assert.False(t, mr.Exists(SchemeKey(4)))
}

func TestKeysAreStable(t *testing.T) {
	assert.Equal(t, WeatherKey("current", "lat=1&lon=2"), WeatherKey("current", "lat=1&lon=2"))
	assert.NotEqual(t, WeatherKey("current", "lat=1&lon=2"), WeatherKey("forecast", "lat=1&lon=2"))
	assert.Equal(t, "scheme:9", SchemeKey(9))
}

func TestTokenRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewTokenRevocations(rdb)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "abc", time.Hour))
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	var missing *TokenRevocations
	assert.ErrorIs(t, missing.Revoke(ctx, "abc", time.Hour), ErrUnavailable)
	revoked, err = NewTokenRevocations(nil).IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}
