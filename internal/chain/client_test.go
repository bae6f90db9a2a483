package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimestampCacheIsBounded(t *testing.T) {
	cache, err := newTimestampCache(3)
	require.NoError(t, err)

	for n := uint64(1); n <= 10; n++ {
		cache.add(n, 1_700_000_000+n)
	}
	require.Equal(t, 3, cache.len())

	_, ok := cache.get(1)
	require.False(t, ok)
	ts, ok := cache.get(10)
	require.True(t, ok)
	require.Equal(t, uint64(1_700_000_010), ts)
}

func TestTimestampCacheKeepsRecentlyRead(t *testing.T) {
	cache, err := newTimestampCache(2)
	require.NoError(t, err)

	cache.add(1, 100)
	cache.add(2, 200)
	_, ok := cache.get(1)
	require.True(t, ok)
	cache.add(3, 300)

	_, ok = cache.get(2)
	require.False(t, ok)
	ts, ok := cache.get(1)
	require.True(t, ok)
	require.Equal(t, uint64(100), ts)
}

func TestTimestampCacheRejectsZeroSize(t *testing.T) {
	_, err := newTimestampCache(0)
	require.Error(t, err)
}
