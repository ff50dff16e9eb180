package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedCacheSetGet(t *testing.T) {
	c := NewUnifiedCache[[]int](time.Minute, "test", nil)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", []int{1, 2})
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 2, Sets: 1}, c.Stats())
}

func TestUnifiedCacheExpiry(t *testing.T) {
	c := NewUnifiedCache[string](20*time.Millisecond, "test", nil)
	defer c.Close()

	c.Set("k", "v")
	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestUnifiedCacheClear(t *testing.T) {
	c := NewUnifiedCache[int](time.Minute, "test", nil)
	defer c.Close()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestKeyBuilder(t *testing.T) {
	k1, err := NewKeyBuilder().Add("mode", "walking").Add("stops", []float64{1, 2}).Build()
	require.NoError(t, err)
	k2, err := NewKeyBuilder().Add("mode", "walking").Add("stops", []float64{1, 2}).Build()
	require.NoError(t, err)
	k3, err := NewKeyBuilder().Add("stops", []float64{1, 2}).Add("mode", "walking").Build()
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)

	_, err = NewKeyBuilder().Add("bad", func() {}).Build()
	assert.Error(t, err)
}
