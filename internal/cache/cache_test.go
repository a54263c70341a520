package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetAfterSetWithinTTL(t *testing.T) {
	c := New[string](10, time.Hour)
	c.Set("k", "v")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_EvictsLRUOnOverflow(t *testing.T) {
	c := New[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	// touch "a" so "b" becomes least-recently-used.
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
}

func TestCache_Clear(t *testing.T) {
	c := New[int](4, time.Hour)
	c.Set("a", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
