package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetMiss(t *testing.T) {
	c := New[int](time.Minute)

	_, ok := c.Get("missing")

	assert.False(t, ok)
}

func TestCache_SetIfCurrentThenGet(t *testing.T) {
	c := New[string](time.Minute)

	stored := c.SetIfCurrent("k", "v", c.Generation())
	got, ok := c.Get("k")

	assert.True(t, stored)
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_Expiry(t *testing.T) {
	c := New[string](time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.SetIfCurrent("k", "v", c.Generation())
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Size(), "expired entry is dropped on read")
}

func TestCache_InvalidateDropsEntries(t *testing.T) {
	c := New[int](time.Minute)
	c.SetIfCurrent("a", 1, c.Generation())

	c.Invalidate()

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_StaleGenerationIsNotStored(t *testing.T) {
	c := New[int](time.Minute)

	gen := c.Generation()
	c.Invalidate() // a write lands while the value is being computed

	assert.False(t, c.SetIfCurrent("a", 1, gen))
	_, ok := c.Get("a")
	assert.False(t, ok)
}
