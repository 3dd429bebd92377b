package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_SetAndGet(t *testing.T) {
	c := NewLRUCache[string](10, 0)
	defer c.Close()

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	// touch "a" so "b" becomes the least recently used entry
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)
	defer c.Close()

	c.Set("a", "1")
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should have expired")
}

func TestLRUCache_Invalidate(t *testing.T) {
	c := NewLRUCache[int](10, 0)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate()

	assert.Equal(t, 0, c.Len())
}

func TestNormalize_IsPermutationInvariant(t *testing.T) {
	a := Normalize("CPAP use PICU")
	b := Normalize("PICU use CPAP")
	assert.Equal(t, a, b)
}

func TestNormalize_DropsStopWords(t *testing.T) {
	a := Normalize("what is the CPAP policy")
	b := Normalize("CPAP policy")
	assert.Equal(t, a, b)
}

func TestKey_ScopesByAppliesTo(t *testing.T) {
	k1 := Key("cpap use", []string{"RUMC"})
	k2 := Key("cpap use", []string{"RCH"})
	assert.NotEqual(t, k1, k2)
}
