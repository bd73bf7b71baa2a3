package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forze-tracker/internal/cache"
	"forze-tracker/internal/config"
	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"
	"forze-tracker/internal/extract"
	"forze-tracker/internal/fallback"
	"forze-tracker/internal/transport"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var errNoFreshRoster = errors.New("roster comes from the players scrape and none is fresh")

type HLTVService struct {
	fetcher transport.Fetcher
	cache   *cache.Cache
	policy  *fallback.Policy
	cfg     *config.Config
	now     func() time.Time
	group   singleflight.Group
	logger  zerolog.Logger
}

func NewHLTVService(fetcher transport.Fetcher, c *cache.Cache, policy *fallback.Policy, cfg *config.Config, logger zerolog.Logger) *HLTVService {
	return &HLTVService{
		fetcher: fetcher,
		cache:   c,
		policy:  policy,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *HLTVService) matchesURL() string {
	return fmt.Sprintf("%s/stats/teams/matches/%d/%s?csVersion=CS2", s.cfg.HLTVBaseURL, s.cfg.HLTVTeamID, s.cfg.HLTVTeamSlug)
}

func (s *HLTVService) teamURL() string {
	return fmt.Sprintf("%s/team/%d/%s", s.cfg.HLTVBaseURL, s.cfg.HLTVTeamID, s.cfg.HLTVTeamSlug)
}

func (s *HLTVService) fetchDoc(ctx context.Context, url string) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ScrapeTimeout)
	defer cancel()

	page, err := s.fetcher.Fetch(ctx, transport.Target{
		URL:     url,
		Referer: s.cfg.HLTVBaseURL + "/",
		Rules:   transport.DefaultRules(),
	})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// FetchMatches returns the cached or freshly scraped match history and
// never substitutes fallback data.
func (s *HLTVService) FetchMatches(ctx context.Context) (domain.MatchesPayload, error) {
	if cached, ok := cache.Lookup[domain.MatchesPayload](s.cache, cache.HLTVMatches); ok {
		s.logger.Debug().Str("resource", cache.HLTVMatches.String()).Msg("returning cached data")
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.HLTVMatches.String(), func() (any, error) {
		start := s.now()
		doc, err := s.fetchDoc(ctx, s.matchesURL())
		if err != nil {
			return nil, err
		}

		res := extract.HLTVMatches(doc)
		matches := res.Matches
		if len(matches) > constants.MaxHLTVMatches {
			matches = matches[:constants.MaxHLTVMatches]
		}
		for _, pe := range res.Skipped {
			s.logger.Debug().Err(pe).Msg("skipped match row")
		}

		payload := domain.NewMatchesPayload(string(domain.SourceHLTV), matches, s.now())
		s.cache.Set(cache.HLTVMatches, payload)

		s.logger.Info().
			Int("matches", payload.Total).
			Int("skipped", len(res.Skipped)).
			Int64("duration_ms", s.now().Sub(start).Milliseconds()).
			Msg("scraped tournament matches")
		return payload, nil
	})
	if err != nil {
		return domain.MatchesPayload{}, err
	}
	return v.(domain.MatchesPayload), nil
}

func (s *HLTVService) Matches(ctx context.Context) (domain.MatchesPayload, error) {
	payload, err := s.FetchMatches(ctx)
	if err != nil {
		if !domain.Degraded(err) {
			return domain.MatchesPayload{}, err
		}
		return s.policy.HLTVMatches(err), nil
	}
	return payload, nil
}

func (s *HLTVService) fetchPlayers(ctx context.Context) (domain.PlayersPayload, error) {
	if cached, ok := cache.Lookup[domain.PlayersPayload](s.cache, cache.HLTVPlayers); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.HLTVPlayers.String(), func() (any, error) {
		doc, err := s.fetchDoc(ctx, s.teamURL())
		if err != nil {
			return nil, err
		}
		players := extract.HLTVPlayers(doc, s.cfg.HLTVBaseURL)
		if len(players) == 0 {
			s.logger.Warn().Msg("players table empty, caching empty result")
		}

		payload := domain.NewPlayersPayload(string(domain.SourceHLTV), players, domain.RatingHLTV, s.now())
		s.cache.Set(cache.HLTVPlayers, payload)
		s.logger.Info().Int("players", payload.Total).Msg("scraped tournament roster")
		return payload, nil
	})
	if err != nil {
		return domain.PlayersPayload{}, err
	}
	return v.(domain.PlayersPayload), nil
}

func (s *HLTVService) Players(ctx context.Context) (domain.PlayersPayload, error) {
	payload, err := s.fetchPlayers(ctx)
	if err != nil {
		if !domain.Degraded(err) {
			return domain.PlayersPayload{}, err
		}
		return s.policy.HLTVPlayers(err), nil
	}
	return payload, nil
}

// Roster never scrapes. A fresh players payload is projected, anything
// else goes through the fallback policy.
func (s *HLTVService) Roster(context.Context) domain.RosterPayload {
	if players, ok := cache.Lookup[domain.PlayersPayload](s.cache, cache.HLTVPlayers); ok {
		return domain.RosterFromPlayers(players)
	}
	return s.policy.HLTVRoster(errNoFreshRoster)
}
