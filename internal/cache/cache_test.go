package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)}
	c := New(map[Category]time.Duration{
		Faceit: 5 * time.Minute,
		HLTV:   10 * time.Minute,
	}, WithClock(clock.Now))
	return c, clock
}

func TestCache_GetAfterSet(t *testing.T) {
	c, _ := newTestCache()

	c.Set(HLTVMatches, "payload")

	got, ok := c.Get(HLTVMatches)
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestCache_MissWhenNeverSet(t *testing.T) {
	c, _ := newTestCache()

	for _, k := range KnownKeys {
		_, ok := c.Get(k)
		assert.False(t, ok, k.String())
	}
	_, ok := c.Get(Key{Category: "other", Resource: Stats})
	assert.False(t, ok)
}

func TestCache_FreshnessBoundary(t *testing.T) {
	c, clock := newTestCache()
	c.Set(FaceitStats, 1)

	clock.Advance(5*time.Minute - time.Nanosecond)
	_, ok := c.Get(FaceitStats)
	assert.True(t, ok, "entry should be fresh just before ttl")

	clock.Advance(time.Nanosecond)
	_, ok = c.Get(FaceitStats)
	assert.False(t, ok, "entry should be stale at exactly ttl")
}

func TestCache_IndependentTTLPerCategory(t *testing.T) {
	c, clock := newTestCache()
	c.Set(FaceitMatches, "faceit")
	c.Set(HLTVMatches, "hltv")

	clock.Advance(7 * time.Minute)

	_, ok := c.Get(FaceitMatches)
	assert.False(t, ok)
	got, ok := c.Get(HLTVMatches)
	require.True(t, ok)
	assert.Equal(t, "hltv", got)

	clock.Advance(3 * time.Minute)
	_, ok = c.Get(HLTVMatches)
	assert.False(t, ok)
}

func TestCache_ClearEmptiesEverything(t *testing.T) {
	c, _ := newTestCache()
	for _, k := range KnownKeys {
		c.Set(k, k.String())
	}

	c.Clear()

	for _, k := range KnownKeys {
		_, ok := c.Get(k)
		assert.False(t, ok, k.String())
		_, ok = c.Peek(k)
		assert.False(t, ok, k.String())
	}
}

func TestCache_ClearResetsTimestampToEpoch(t *testing.T) {
	c, _ := newTestCache()
	c.Set(HLTVMatches, "x")
	c.Clear()

	c.mu.RLock()
	e := c.entries[HLTVMatches]
	c.mu.RUnlock()
	assert.Nil(t, e.Data)
	assert.True(t, e.CapturedAt.Equal(time.Unix(0, 0)))
}

func TestCache_PeekReturnsStaleEntry(t *testing.T) {
	c, clock := newTestCache()
	c.Set(FaceitPlayers, "old")
	clock.Advance(time.Hour)

	_, ok := c.Get(FaceitPlayers)
	assert.False(t, ok)

	e, ok := c.Peek(FaceitPlayers)
	require.True(t, ok)
	assert.Equal(t, "old", e.Data)
}

func TestLookup_TypeMismatchIsMiss(t *testing.T) {
	c, _ := newTestCache()
	c.Set(HLTVPlayers, 42)

	_, ok := Lookup[string](c, HLTVPlayers)
	assert.False(t, ok)

	n, ok := Lookup[int](c, HLTVPlayers)
	require.True(t, ok)
	assert.Equal(t, 42, n)
}

func TestLastKnown(t *testing.T) {
	c, clock := newTestCache()
	c.Set(HLTVMatches, "live")
	captured := clock.Now()
	clock.Advance(time.Hour)

	v, at, ok := LastKnown[string](c, HLTVMatches)
	require.True(t, ok)
	assert.Equal(t, "live", v)
	assert.True(t, at.Equal(captured))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(HLTVMatches, i)
			c.Get(HLTVMatches)
			if i%10 == 0 {
				c.Clear()
			}
		}(i)
	}
	wg.Wait()
}
