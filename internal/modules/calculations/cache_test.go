package calculations

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type sampleResult struct {
	Symbol string  `msgpack:"symbol"`
	VaR    float64 `msgpack:"var"`
}

func setupCache(t *testing.T) *Cache {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	cache := NewCache(conn)
	require.NoError(t, cache.Migrate())
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := setupCache(t)

	in := sampleResult{Symbol: "AAPL", VaR: -0.032}
	require.NoError(t, cache.Store("var:AAPL:0.95", in, time.Hour))

	var out sampleResult
	hit, err := cache.Get("var:AAPL:0.95", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)
}

func TestCacheMiss(t *testing.T) {
	cache := setupCache(t)

	var out sampleResult
	hit, err := cache.Get("missing", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheExpiry(t *testing.T) {
	cache := setupCache(t)

	require.NoError(t, cache.Store("stale", sampleResult{Symbol: "X"}, -time.Minute))

	var out sampleResult
	hit, err := cache.Get("stale", &out)
	require.NoError(t, err)
	assert.False(t, hit, "expired entries are misses")

	purged, err := cache.Purge()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestCacheOverwrite(t *testing.T) {
	cache := setupCache(t)

	require.NoError(t, cache.Store("k", sampleResult{VaR: -0.01}, time.Hour))
	require.NoError(t, cache.Store("k", sampleResult{VaR: -0.02}, time.Hour))

	var out sampleResult
	hit, err := cache.Get("k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, -0.02, out.VaR)
}
