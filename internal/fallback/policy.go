// Package fallback builds degraded payloads for every resource. It prefers
// the last live payload the cache still holds, relabelled, and only then
// falls back to the static samples. Nothing produced here is ever cached.
package fallback

import (
	"time"

	"forze-tracker/internal/cache"
	"forze-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type Policy struct {
	cache  *cache.Cache
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Policy)

func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

func New(c *cache.Cache, logger zerolog.Logger, opts ...Option) *Policy {
	p := &Policy{cache: c, now: time.Now, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

type degradable[T any] interface {
	AsFallback(cause string, now time.Time) T
}

func serve[T degradable[T]](p *Policy, key cache.Key, cause error, static func(now time.Time) T) T {
	now := p.now()
	msg := domain.Cause(cause)
	if last, capturedAt, ok := cache.LastKnown[T](p.cache, key); ok {
		p.logger.Warn().
			Err(cause).
			Str("resource", key.String()).
			Time("captured_at", capturedAt).
			Msg("serving last known data")
		return last.AsFallback(msg, now)
	}
	p.logger.Warn().Err(cause).Str("resource", key.String()).Msg("serving static fallback")
	return static(now).AsFallback(msg, now)
}

func (p *Policy) HLTVMatches(cause error) domain.MatchesPayload {
	return serve(p, cache.HLTVMatches, cause, func(now time.Time) domain.MatchesPayload {
		return domain.NewMatchesPayload(string(domain.SourceHLTV), staticHLTVMatches(), now)
	})
}

func (p *Policy) HLTVPlayers(cause error) domain.PlayersPayload {
	return serve(p, cache.HLTVPlayers, cause, staticHLTVPlayersPayload)
}

// HLTVRoster projects whatever players payload the policy would serve.
func (p *Policy) HLTVRoster(cause error) domain.RosterPayload {
	return domain.RosterFromPlayers(p.HLTVPlayers(cause))
}

func (p *Policy) FaceitMatches(cause error) domain.MatchesPayload {
	return serve(p, cache.FaceitMatches, cause, func(now time.Time) domain.MatchesPayload {
		return domain.NewMatchesPayload(string(domain.SourceFaceit), staticFaceitMatches(), now)
	})
}

func (p *Policy) FaceitPlayers(cause error) domain.PlayersPayload {
	return serve(p, cache.FaceitPlayers, cause, func(now time.Time) domain.PlayersPayload {
		return domain.NewPlayersPayload(string(domain.SourceFaceit), staticFaceitPlayers(), domain.RatingFaceit, now)
	})
}

func (p *Policy) FaceitStats(cause error) domain.TeamStatsPayload {
	return serve(p, cache.FaceitStats, cause, func(now time.Time) domain.TeamStatsPayload {
		return domain.TeamStatsPayload{
			Source:      string(domain.SourceFaceit),
			Team:        staticTeam(),
			Stats:       staticTeamStats(),
			LastUpdated: now,
		}
	})
}

func (p *Policy) FaceitInfo(cause error) domain.TeamInfoPayload {
	return serve(p, cache.FaceitInfo, cause, func(now time.Time) domain.TeamInfoPayload {
		return domain.TeamInfoPayload{
			Source:      string(domain.SourceFaceit),
			Team:        staticTeam(),
			Members:     len(staticFaceitPlayers()),
			LastUpdated: now,
		}
	})
}

func staticHLTVPlayersPayload(now time.Time) domain.PlayersPayload {
	return domain.NewPlayersPayload(string(domain.SourceHLTV), staticHLTVPlayers(), domain.RatingHLTV, now)
}
