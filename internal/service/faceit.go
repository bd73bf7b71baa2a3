package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"forze-tracker/internal/api"
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
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	placeholderElo   = 1000
	playerProfileURL = "https://www.faceit.com/en/players/"
)

// PlatformAPI is the subset of the platform client the service drives.
type PlatformAPI interface {
	SearchTeams(ctx context.Context, name string) ([]api.TeamSearchItem, error)
	GetTeam(ctx context.Context, teamID string) (*api.TeamResponse, error)
	GetTeamAggregate(ctx context.Context, teamID string) (*api.TeamAggregate, error)
	GetPlayerAggregate(ctx context.Context, playerID string) (*api.PlayerAggregate, error)
	TeamMatches(ctx context.Context, team api.Identity, limit int) ([]domain.MatchRecord, error)
}

type FaceitService struct {
	api PlatformAPI
	// page is optional and only consulted when the page scrape is enabled.
	page   transport.Fetcher
	cache  *cache.Cache
	policy *fallback.Policy
	cfg    *config.Config
	now    func() time.Time
	group  singleflight.Group
	logger zerolog.Logger

	mu     sync.Mutex
	teamID string
}

func NewFaceitService(client PlatformAPI, page transport.Fetcher, c *cache.Cache, policy *fallback.Policy, cfg *config.Config, logger zerolog.Logger) *FaceitService {
	return &FaceitService{
		api:    client,
		page:   page,
		cache:  c,
		policy: policy,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
		teamID: cfg.FaceitTeamID,
	}
}

// resolveTeamID returns the configured team id, or searches for the team by
// name once and remembers the answer.
func (s *FaceitService) resolveTeamID(ctx context.Context) (string, error) {
	s.mu.Lock()
	id := s.teamID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	items, err := s.api.SearchTeams(ctx, s.cfg.FaceitTeamName)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", &domain.UpstreamAPIError{Endpoint: "/search/teams", StatusCode: 404, Message: "no team named " + s.cfg.FaceitTeamName}
	}

	id = items[0].TeamID
	for _, it := range items {
		if strings.EqualFold(it.Name, s.cfg.FaceitTeamName) && (it.Game == "" || it.Game == s.cfg.FaceitGame) {
			id = it.TeamID
			break
		}
	}

	s.mu.Lock()
	s.teamID = id
	s.mu.Unlock()
	s.logger.Info().Str("team_id", id).Str("team", s.cfg.FaceitTeamName).Msg("resolved platform team")
	return id, nil
}

// FetchStats returns cached or live team stats without falling back. A
// live fetch also refreshes the team info entry.
func (s *FaceitService) FetchStats(ctx context.Context) (domain.TeamStatsPayload, error) {
	if cached, ok := cache.Lookup[domain.TeamStatsPayload](s.cache, cache.FaceitStats); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.FaceitStats.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
		defer cancel()

		id, err := s.resolveTeamID(ctx)
		if err != nil {
			return nil, err
		}
		agg, err := s.api.GetTeamAggregate(ctx, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		team := agg.Team
		if team.Name == "" {
			team.Name = s.cfg.FaceitTeamName
		}
		payload := domain.TeamStatsPayload{
			Source:      string(domain.SourceFaceit),
			Team:        team,
			Stats:       agg.Stats,
			LastUpdated: now,
		}
		// Info first: whoever sees fresh stats must also find fresh info.
		s.cache.Set(cache.FaceitInfo, domain.TeamInfoPayload{
			Source:      string(domain.SourceFaceit),
			Team:        team,
			Members:     len(agg.Members),
			LastUpdated: now,
		})
		s.cache.Set(cache.FaceitStats, payload)
		return payload, nil
	})
	if err != nil {
		return domain.TeamStatsPayload{}, err
	}
	return v.(domain.TeamStatsPayload), nil
}

func (s *FaceitService) Stats(ctx context.Context) (domain.TeamStatsPayload, error) {
	payload, err := s.FetchStats(ctx)
	if err == nil {
		return payload, nil
	}
	if !domain.Degraded(err) {
		return domain.TeamStatsPayload{}, err
	}

	if s.scrapeEnabled() {
		scraped, serr := s.scrapeStats(ctx)
		if serr == nil {
			return scraped, nil
		}
		s.logger.Warn().Err(serr).Msg("team page scrape failed")
		err = errors.CombineErrors(err, serr)
	}
	return s.policy.FaceitStats(err), nil
}

func (s *FaceitService) scrapeEnabled() bool {
	return s.cfg.FaceitScrapeFallback && s.page != nil && s.cfg.FaceitTeamPageURL != ""
}

// scrapeStats reads the public team page. The result is live data and is
// cached like an API answer.
func (s *FaceitService) scrapeStats(ctx context.Context) (domain.TeamStatsPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ScrapeTimeout)
	defer cancel()

	page, err := s.page.Fetch(ctx, transport.Target{
		URL:   s.cfg.FaceitTeamPageURL,
		Rules: transport.PlatformRules(),
	})
	if err != nil {
		return domain.TeamStatsPayload{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return domain.TeamStatsPayload{}, errors.Wrap(err, "failed to parse team page")
	}

	parsed := extract.PlatformTeamPage(doc)
	team := parsed.Team
	if team.Name == "" {
		team.Name = s.cfg.FaceitTeamName
	}
	payload := domain.TeamStatsPayload{
		Source:      string(domain.SourceFaceit),
		Team:        team,
		Stats:       parsed.TeamStats(),
		LastUpdated: s.now(),
	}
	s.cache.Set(cache.FaceitStats, payload)
	s.logger.Info().Int("recent", len(parsed.Recent)).Msg("scraped team page stats")
	return payload, nil
}

func (s *FaceitService) TeamInfo(ctx context.Context) (domain.TeamInfoPayload, error) {
	if cached, ok := cache.Lookup[domain.TeamInfoPayload](s.cache, cache.FaceitInfo); ok {
		return cached, nil
	}
	if _, err := s.FetchStats(ctx); err != nil {
		if !domain.Degraded(err) {
			return domain.TeamInfoPayload{}, err
		}
		return s.policy.FaceitInfo(err), nil
	}
	if info, ok := cache.Lookup[domain.TeamInfoPayload](s.cache, cache.FaceitInfo); ok {
		return info, nil
	}
	// Stats came from the page scrape, which carries no member list.
	return s.policy.FaceitInfo(errors.New("team info not available from team page")), nil
}

func (s *FaceitService) identity(ctx context.Context) (api.Identity, *api.TeamResponse, error) {
	id, err := s.resolveTeamID(ctx)
	if err != nil {
		return api.Identity{}, nil, err
	}
	team, err := s.api.GetTeam(ctx, id)
	if err != nil {
		return api.Identity{}, nil, err
	}
	ident := api.Identity{TeamID: id, MemberIDs: make([]string, 0, len(team.Members))}
	for _, m := range team.Members {
		ident.MemberIDs = append(ident.MemberIDs, m.UserID)
	}
	return ident, team, nil
}

func (s *FaceitService) fetchMatches(ctx context.Context) (domain.MatchesPayload, error) {
	if cached, ok := cache.Lookup[domain.MatchesPayload](s.cache, cache.FaceitMatches); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.FaceitMatches.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
		defer cancel()

		ident, _, err := s.identity(ctx)
		if err != nil {
			return nil, err
		}
		matches, err := s.api.TeamMatches(ctx, ident, s.cfg.FaceitMaxMatches)
		if err != nil {
			return nil, err
		}
		payload := domain.NewMatchesPayload(string(domain.SourceFaceit), matches, s.now())
		s.cache.Set(cache.FaceitMatches, payload)
		s.logger.Info().Int("matches", payload.Total).Msg("fetched platform matches")
		return payload, nil
	})
	if err != nil {
		return domain.MatchesPayload{}, err
	}
	return v.(domain.MatchesPayload), nil
}

func (s *FaceitService) Matches(ctx context.Context) (domain.MatchesPayload, error) {
	payload, err := s.fetchMatches(ctx)
	if err != nil {
		if !domain.Degraded(err) {
			return domain.MatchesPayload{}, err
		}
		return s.policy.FaceitMatches(err), nil
	}
	return payload, nil
}

func (s *FaceitService) fetchPlayers(ctx context.Context) (domain.PlayersPayload, error) {
	if cached, ok := cache.Lookup[domain.PlayersPayload](s.cache, cache.FaceitPlayers); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(cache.FaceitPlayers.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
		defer cancel()

		_, team, err := s.identity(ctx)
		if err != nil {
			return nil, err
		}

		mapper := iter.Mapper[api.TeamMember, domain.PlayerRecord]{MaxGoroutines: constants.PlayerFanOutLimit}
		players := mapper.Map(team.Members, func(m *api.TeamMember) domain.PlayerRecord {
			return s.player(ctx, *m)
		})

		payload := domain.NewPlayersPayload(string(domain.SourceFaceit), players, domain.RatingFaceit, s.now())
		s.cache.Set(cache.FaceitPlayers, payload)
		s.logger.Info().Int("players", payload.Total).Msg("fetched platform players")
		return payload, nil
	})
	if err != nil {
		return domain.PlayersPayload{}, err
	}
	return v.(domain.PlayersPayload), nil
}

// player enriches one member. A failed lookup yields a placeholder record so
// one member never sinks the whole roster.
func (s *FaceitService) player(ctx context.Context, m api.TeamMember) domain.PlayerRecord {
	rec := domain.PlayerRecord{
		ID:          m.UserID,
		Nickname:    m.Nickname,
		Status:      domain.Starter,
		Rating:      placeholderElo,
		RatingScale: domain.RatingFaceit,
		ProfileURL:  playerProfileURL + m.Nickname,
	}

	agg, err := s.api.GetPlayerAggregate(ctx, m.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", m.UserID).Msg("player stats unavailable, using placeholder")
		return rec
	}

	if agg.Nickname != "" {
		rec.Nickname = agg.Nickname
		rec.ProfileURL = playerProfileURL + agg.Nickname
	}
	if agg.Elo > 0 {
		rec.Rating = float64(agg.Elo)
	}
	rec.Stats = domain.PlayerStats{
		MapsPlayed:  agg.Matches,
		Kills:       agg.Kills,
		Deaths:      agg.Deaths,
		Assists:     agg.Assists,
		KDRatio:     agg.KDRatio,
		WinRate:     agg.WinRate,
		Headshots:   agg.Headshots,
		HeadshotPct: agg.HeadshotPct,
		MVPs:        agg.MVPs,
	}
	return rec
}

func (s *FaceitService) Players(ctx context.Context) (domain.PlayersPayload, error) {
	payload, err := s.fetchPlayers(ctx)
	if err != nil {
		if !domain.Degraded(err) {
			return domain.PlayersPayload{}, err
		}
		return s.policy.FaceitPlayers(err), nil
	}
	return payload, nil
}

// Combined gathers team info, stats and matches concurrently. Each part
// degrades on its own and is listed in Errors when it does.
func (s *FaceitService) Combined(ctx context.Context) (domain.CombinedPayload, error) {
	var (
		info    domain.TeamInfoPayload
		stats   domain.TeamStatsPayload
		matches domain.MatchesPayload
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.TeamInfo(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.Matches(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CombinedPayload{}, err
	}

	out := domain.CombinedPayload{
		Source:    string(domain.SourceFaceit),
		TeamInfo:  info.Team,
		TeamStats: stats.Stats,
		Matches: domain.MatchesSummary{
			Matches: matches.Matches,
			Total:   matches.Total,
			Wins:    matches.Wins,
			Losses:  matches.Losses,
		},
		LastUpdated: s.now(),
	}

	errs := map[string]string{}
	if domain.IsFallbackLabel(info.Source) {
		errs["teamInfo"] = info.Error
	}
	if domain.IsFallbackLabel(stats.Source) {
		errs["teamStats"] = stats.Error
	}
	if domain.IsFallbackLabel(matches.Source) {
		errs["matches"] = matches.Error
	}
	if len(errs) > 0 {
		out.Errors = errs
	}
	if len(errs) == 3 {
		out.Source = domain.SourceFaceit.Fallback()
	}
	return out, nil
}
