package fallback

import (
	"testing"
	"time"

	"forze-tracker/internal/cache"
	"forze-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestPolicy() (*Policy, *cache.Cache) {
	now := func() time.Time { return testNow }
	c := cache.New(map[cache.Category]time.Duration{
		cache.Faceit: 5 * time.Minute,
		cache.HLTV:   10 * time.Minute,
	}, cache.WithClock(now))
	return New(c, zerolog.Nop(), WithClock(now)), c
}

var errBlocked = &domain.BlockedError{URL: "https://www.hltv.org", Reason: domain.BlockChallenge, Marker: "Just a moment..."}

func TestHLTVMatches_Static(t *testing.T) {
	p, _ := newTestPolicy()

	got := p.HLTVMatches(errBlocked)

	assert.Equal(t, "HLTV (Fallback)", got.Source)
	assert.Contains(t, got.Error, "anti-bot challenge")
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Wins)
	assert.Equal(t, 1, got.Losses)
	assert.Equal(t, "NAVI", got.Matches[0].Opponent)
	assert.True(t, got.LastUpdated.Equal(testNow))
}

func TestHLTVMatches_PrefersLastKnown(t *testing.T) {
	p, c := newTestPolicy()
	live := domain.NewMatchesPayload("HLTV", []domain.MatchRecord{
		{Opponent: "Heroic", OurScore: 16, OpponentScore: 3, Source: domain.SourceHLTV},
	}, testNow.Add(-time.Hour))
	c.Set(cache.HLTVMatches, live)

	got := p.HLTVMatches(errBlocked)

	assert.Equal(t, "HLTV (Fallback)", got.Source)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "Heroic", got.Matches[0].Opponent)

	stored, ok := cache.Lookup[domain.MatchesPayload](c, cache.HLTVMatches)
	require.True(t, ok)
	assert.Equal(t, "HLTV", stored.Source, "the cached live payload is not relabelled")
}

func TestFallbackIsNeverCached(t *testing.T) {
	p, c := newTestPolicy()

	p.HLTVMatches(nil)
	p.FaceitPlayers(nil)
	p.FaceitStats(nil)

	for _, k := range cache.KnownKeys {
		_, ok := c.Peek(k)
		assert.False(t, ok, k.String())
	}
}

func TestHLTVPlayers_Static(t *testing.T) {
	p, _ := newTestPolicy()
	got := p.HLTVPlayers(nil)

	assert.Equal(t, "HLTV (Fallback)", got.Source)
	assert.Equal(t, "live data unavailable", got.Error)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 5, got.Starters)
	assert.Equal(t, "1.18", got.AverageRating)
	assert.Equal(t, "sh1ro", got.Players[0].Nickname)
}

func TestHLTVRoster_FromStaticPlayers(t *testing.T) {
	p, _ := newTestPolicy()
	got := p.HLTVRoster(nil)

	assert.Equal(t, "HLTV (Fallback)", got.Source)
	require.Len(t, got.Roster, 5)
	assert.Equal(t, "1.25", got.Roster[0].Rating30)
	assert.Equal(t, "1.18", got.AverageRating)
}

func TestFaceitPayloads_Static(t *testing.T) {
	p, _ := newTestPolicy()

	stats := p.FaceitStats(nil)
	assert.Equal(t, "FACEIT (Fallback)", stats.Source)
	assert.Equal(t, 1250, stats.Team.Elo)
	assert.Equal(t, 45, stats.Stats.TotalMatches)
	assert.InDelta(t, 71.1, stats.Stats.WinRate, 1e-9)

	players := p.FaceitPlayers(nil)
	assert.Equal(t, 2, players.Total)
	assert.Equal(t, "8", players.AverageRating)

	matches := p.FaceitMatches(nil)
	assert.Equal(t, "match_1", matches.Matches[0].ID)

	info := p.FaceitInfo(nil)
	assert.Equal(t, "FORZE Reload", info.Team.Name)
	assert.Equal(t, 2, info.Members)
}

func TestFallbackLabelIsNotDoubled(t *testing.T) {
	p, c := newTestPolicy()
	c.Set(cache.FaceitMatches, p.FaceitMatches(nil))

	got := p.FaceitMatches(nil)
	assert.Equal(t, "FACEIT (Fallback)", got.Source)
}
