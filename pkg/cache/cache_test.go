package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestCache_TTLBoundary(t *testing.T) {
	clock := newClock()
	c := New[string, string](Options{Capacity: 100, TTL: 30 * time.Second, Now: clock.Now})

	c.Set("GET /announcements", "v1")

	clock.Advance(29*time.Second + 900*time.Millisecond)
	v, ok := c.Get("GET /announcements")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	clock.Advance(200 * time.Millisecond) // t+30.1s
	_, ok = c.Get("GET /announcements")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_FIFOEvictsOldestInsertion(t *testing.T) {
	c := New[int, int](Options{Capacity: 3, TTL: time.Minute, Policy: FIFO})

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	// чтение не спасает от вытеснения при FIFO
	_, _ = c.Get(1)
	c.Set(4, 4)

	_, ok := c.Get(1)
	assert.False(t, ok)
	for _, k := range []int{2, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}
}

func TestCache_LRUKeepsRecentlyRead(t *testing.T) {
	c := New[int, int](Options{Capacity: 3, TTL: time.Minute, Policy: LRU})

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	_, _ = c.Get(1)
	c.Set(4, 4)

	_, ok := c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestCache_CapacityNeverExceeded(t *testing.T) {
	c := New[string, int](DefaultOptions())
	for i := 0; i < 250; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 100, c.Len())

	_, ok := c.Get("k149")
	assert.False(t, ok)
	_, ok = c.Get("k150")
	assert.True(t, ok)
}

func TestCache_OverwriteRefreshesTTL(t *testing.T) {
	clock := newClock()
	c := New[string, int](Options{Capacity: 2, TTL: 30 * time.Second, Now: clock.Now})

	c.Set("a", 1)
	clock.Advance(20 * time.Second)
	c.Set("a", 2)
	clock.Advance(20 * time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_DeleteAndPurge(t *testing.T) {
	c := New[string, int](DefaultOptions())
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
