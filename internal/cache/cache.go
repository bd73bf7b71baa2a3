// Package cache is a passive, TTL-bounded memo of fetch results. It never
// fetches on a miss; callers run the fetch-then-Set sequence themselves.
package cache

import (
	"sync"
	"time"

	"forze-tracker/internal/config"
)

type Category string

const (
	Faceit Category = "faceit"
	HLTV   Category = "hltv"
)

type Resource string

const (
	Stats   Resource = "stats"
	Matches Resource = "matches"
	Info    Resource = "info"
	Players Resource = "players"
)

type Key struct {
	Category Category
	Resource Resource
}

func (k Key) String() string {
	return string(k.Category) + ":" + string(k.Resource)
}

var (
	FaceitStats   = Key{Faceit, Stats}
	FaceitMatches = Key{Faceit, Matches}
	FaceitInfo    = Key{Faceit, Info}
	FaceitPlayers = Key{Faceit, Players}
	HLTVMatches   = Key{HLTV, Matches}
	HLTVPlayers   = Key{HLTV, Players}
)

// KnownKeys are present from construction so Clear has a fixed surface.
var KnownKeys = []Key{
	FaceitStats, FaceitMatches, FaceitInfo, FaceitPlayers,
	HLTVMatches, HLTVPlayers,
}

// Entry is owned by the cache; Get hands out the stored value only.
type Entry struct {
	Data       any
	CapturedAt time.Time
}

var epoch = time.Unix(0, 0).UTC()

type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	ttls    map[Category]time.Duration
	now     func() time.Time
}

type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(ttls map[Category]time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]Entry, len(KnownKeys)),
		ttls:    make(map[Category]time.Duration, len(ttls)),
		now:     time.Now,
	}
	for cat, ttl := range ttls {
		c.ttls[cat] = ttl
	}
	for _, o := range opts {
		o(c)
	}
	for _, k := range KnownKeys {
		c.entries[k] = Entry{CapturedAt: epoch}
	}
	return c
}

func NewFromConfig(cfg *config.Config) *Cache {
	return New(map[Category]time.Duration{
		Faceit: cfg.FaceitTTL,
		HLTV:   cfg.HLTVTTL,
	})
}

func (c *Cache) TTL(cat Category) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttls[cat]
}

// Get returns the data iff now - capturedAt < ttl.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	ttl := c.ttls[key.Category]
	c.mu.RUnlock()
	if !ok || e.Data == nil {
		return nil, false
	}
	if c.now().Sub(e.CapturedAt) >= ttl {
		return nil, false
	}
	return e.Data, true
}

// Peek returns the entry regardless of freshness.
func (c *Cache) Peek(key Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.Data == nil {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) Set(key Key, data any) {
	now := c.now()
	c.mu.Lock()
	c.entries[key] = Entry{Data: data, CapturedAt: now}
	c.mu.Unlock()
}

// Clear resets every entry's data to empty and its timestamp to epoch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		c.entries[k] = Entry{CapturedAt: epoch}
	}
}

// Lookup is Get with a typed result.
func Lookup[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// LastKnown is Peek with a typed result: the most recent live value even if
// it has gone stale. Cleared entries are gone.
func LastKnown[T any](c *Cache, key Key) (T, time.Time, bool) {
	var zero T
	e, ok := c.Peek(key)
	if !ok {
		return zero, time.Time{}, false
	}
	t, ok := e.Data.(T)
	if !ok {
		return zero, time.Time{}, false
	}
	return t, e.CapturedAt, true
}
