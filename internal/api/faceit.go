package api

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"forze-tracker/internal/config"
	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

type FaceitClient struct {
	baseURL    string
	apiKey     string
	game       string
	maxRetries int
	backoff    time.Duration
	client     *fasthttp.Client
	logger     zerolog.Logger

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewFaceitClient(cfg *config.Config, logger zerolog.Logger) *FaceitClient {
	return &FaceitClient{
		baseURL:    cfg.FaceitBaseURL,
		apiKey:     cfg.FaceitAPIKey,
		game:       cfg.FaceitGame,
		maxRetries: max(cfg.FaceitMaxRetries, 0),
		backoff:    constants.APIRetryBackoff,
		client: &fasthttp.Client{
			MaxConnsPerHost:     32,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
		rateLimit: RateLimitInfo{
			UpdatedAt: time.Now(),
		},
	}
}

func (c *FaceitClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *FaceitClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *FaceitClient) SearchTeams(ctx context.Context, name string) ([]TeamSearchItem, error) {
	q := url.Values{}
	q.Set("nickname", name)
	q.Set("game", c.game)
	q.Set("offset", "0")
	q.Set("limit", "20")
	resp, err := doRequest[TeamSearchResponse](ctx, c, "/search/teams", q)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *FaceitClient) GetTeam(ctx context.Context, teamID string) (*TeamResponse, error) {
	return doRequest[TeamResponse](ctx, c, "/teams/"+url.PathEscape(teamID), nil)
}

func (c *FaceitClient) GetTeamStats(ctx context.Context, teamID string) (*StatsResponse, error) {
	return doRequest[StatsResponse](ctx, c, fmt.Sprintf("/teams/%s/stats/%s", url.PathEscape(teamID), url.PathEscape(c.game)), nil)
}

func (c *FaceitClient) GetPlayer(ctx context.Context, playerID string) (*PlayerResponse, error) {
	return doRequest[PlayerResponse](ctx, c, "/players/"+url.PathEscape(playerID), nil)
}

func (c *FaceitClient) GetPlayerStats(ctx context.Context, playerID string) (*StatsResponse, error) {
	return doRequest[StatsResponse](ctx, c, fmt.Sprintf("/players/%s/stats/%s", url.PathEscape(playerID), url.PathEscape(c.game)), nil)
}

func (c *FaceitClient) GetPlayerHistory(ctx context.Context, playerID string, offset, limit int) (*HistoryResponse, error) {
	q := url.Values{}
	q.Set("game", c.game)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return doRequest[HistoryResponse](ctx, c, fmt.Sprintf("/players/%s/history", url.PathEscape(playerID)), q)
}

func (c *FaceitClient) GetMatch(ctx context.Context, matchID string) (*RawMatch, error) {
	return doRequest[RawMatch](ctx, c, "/matches/"+url.PathEscape(matchID), nil)
}

// PlayerAggregate is one roster member's profile and lifetime numbers.
type PlayerAggregate struct {
	PlayerID    string
	Nickname    string
	SkillLevel  int
	Elo         int
	Matches     int
	Wins        int
	WinRate     float64
	KDRatio     float64
	HeadshotPct float64
	Kills       int
	Deaths      int
	Assists     int
	MVPs        int
	Headshots   int
}

func (c *FaceitClient) GetPlayerAggregate(ctx context.Context, playerID string) (*PlayerAggregate, error) {
	var (
		player *PlayerResponse
		stats  *StatsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		player, err = c.GetPlayer(gctx, playerID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = c.GetPlayerStats(gctx, playerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := &PlayerAggregate{PlayerID: playerID, Nickname: player.Nickname}
	if game, ok := player.Games[c.game]; ok {
		agg.SkillLevel = game.SkillLevel
		agg.Elo = game.FaceitElo
	}

	lt := stats.Lifetime
	agg.Matches = statInt(lt, "Matches", "Total Matches")
	agg.Wins = statInt(lt, "Wins")
	agg.WinRate, _ = statNumber(lt, "Win Rate %", "Win Rate")
	agg.KDRatio, _ = statNumber(lt, "Average K/D Ratio", "K/D Ratio")
	agg.HeadshotPct, _ = statNumber(lt, "Average Headshots %", "Total Headshots %")

	for _, seg := range stats.Segments {
		agg.Kills += statInt(seg.Stats, "Kills", "Total Kills with extended stats")
		agg.Deaths += statInt(seg.Stats, "Deaths")
		agg.Assists += statInt(seg.Stats, "Assists")
		agg.MVPs += statInt(seg.Stats, "MVPs")
		agg.Headshots += statInt(seg.Stats, "Headshots", "Total Headshots")
	}
	if agg.KDRatio == 0 && agg.Deaths > 0 {
		agg.KDRatio = math.Round(float64(agg.Kills)/float64(agg.Deaths)*100) / 100
	}
	return agg, nil
}

// TeamAggregate pairs the team profile with its lifetime record.
type TeamAggregate struct {
	Team    domain.TeamInfo
	Members []TeamMember
	Stats   domain.TeamStats
}

func (c *FaceitClient) GetTeamAggregate(ctx context.Context, teamID string) (*TeamAggregate, error) {
	var (
		team  *TeamResponse
		stats *StatsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		team, err = c.GetTeam(gctx, teamID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = c.GetTeamStats(gctx, teamID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := &TeamAggregate{
		Team:    domain.TeamInfo{Name: orDefault(team.Name, team.Nickname)},
		Members: team.Members,
		Stats:   teamStats(stats.Lifetime),
	}
	// The team itself has no level; report the members' average.
	if n := len(team.Members); n > 0 {
		sum := 0
		for _, m := range team.Members {
			sum += m.SkillLevel
		}
		agg.Team.Level = int(math.Round(float64(sum) / float64(n)))
	}
	return agg, nil
}

func teamStats(lt map[string]any) domain.TeamStats {
	ts := domain.TeamStats{
		TotalMatches: statInt(lt, "Matches", "Total Matches"),
		Wins:         statInt(lt, "Wins"),
		Extra:        map[string]string{},
	}
	ts.Losses = max(ts.TotalMatches-ts.Wins, 0)
	if v, ok := statNumber(lt, "Win Rate %", "Win Rate"); ok {
		ts.WinRate = v
	} else {
		ts.WinRate = domain.Percent(ts.Wins, ts.TotalMatches)
	}
	for k, v := range lt {
		switch x := v.(type) {
		case string:
			ts.Extra[k] = x
		case float64:
			ts.Extra[k] = strconv.FormatFloat(x, 'f', -1, 64)
		}
	}
	return ts
}

// TeamMatches walks the match history of the first roster member whose
// history is reachable and keeps the matches the team played together.
// Details are fetched per match to recover the map and round scores; a
// failed detail call leaves the history item as is.
func (c *FaceitClient) TeamMatches(ctx context.Context, team Identity, limit int) ([]domain.MatchRecord, error) {
	if limit <= 0 {
		limit = constants.FaceitMaxMatches
	}
	if len(team.MemberIDs) == 0 {
		return nil, &domain.UpstreamAPIError{Endpoint: "/players/history", Message: "team has no members to read history from"}
	}

	var (
		raw     []RawMatch
		lastErr error
	)
	for _, anchor := range team.MemberIDs {
		raw, lastErr = c.collectHistory(ctx, anchor, team, limit)
		if lastErr == nil {
			break
		}
		c.logger.Warn().Err(lastErr).Str("player_id", anchor).Msg("history unavailable, trying next member")
	}
	if lastErr != nil {
		return nil, lastErr
	}

	mapper := iter.Mapper[RawMatch, RawMatch]{MaxGoroutines: constants.PlayerFanOutLimit}
	enriched := mapper.Map(raw, func(m *RawMatch) RawMatch {
		details, err := c.GetMatch(ctx, m.MatchID)
		if err != nil {
			c.logger.Debug().Err(err).Str("match_id", m.MatchID).Msg("match details unavailable")
			return *m
		}
		return merge(*m, *details)
	})

	out := make([]domain.MatchRecord, 0, len(enriched))
	skipped := 0
	for _, m := range enriched {
		rec, err := Normalize(m, team)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	c.logger.Info().Int("matches", len(out)).Int("skipped", skipped).Msg("team match history loaded")
	return out, nil
}

func (c *FaceitClient) collectHistory(ctx context.Context, playerID string, team Identity, limit int) ([]RawMatch, error) {
	out := []RawMatch{}
	size := constants.FaceitHistoryPageSize
	for page := 0; page < constants.FaceitMaxHistoryPages && len(out) < limit; page++ {
		resp, err := c.GetPlayerHistory(ctx, playerID, page*size, size)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			// Keep what earlier pages produced.
			c.logger.Warn().Err(err).Int("page", page).Msg("history pagination stopped early")
			break
		}
		for _, item := range resp.Items {
			if _, ok := item.OurFaction(team); ok {
				out = append(out, item)
				if len(out) == limit {
					break
				}
			}
		}
		if len(resp.Items) < size {
			break
		}
	}
	return out, nil
}

func doRequest[T any](ctx context.Context, client *FaceitClient, endpoint string, query url.Values) (*T, error) {
	if client.apiKey == "" {
		return nil, &domain.UpstreamAPIError{Endpoint: endpoint, Message: "api key not configured"}
	}

	var lastErr error
	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		result, retryAfter, err := doOnce[T](ctx, client, endpoint, query)
		if err == nil {
			return result, nil
		}
		lastErr = err

		apiErr, ok := err.(*domain.UpstreamAPIError)
		if !ok || !apiErr.Retryable() || attempt == client.maxRetries {
			break
		}

		wait := client.backoff * time.Duration(attempt+1)
		if retryAfter > 0 {
			wait = min(retryAfter, constants.MaxRetryAfter)
		}
		client.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", apiErr.StatusCode).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("retrying platform request")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &domain.TransportError{URL: endpoint, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func doOnce[T any](ctx context.Context, client *FaceitClient, endpoint string, query url.Values) (*T, time.Duration, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := client.baseURL + endpoint
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)
	req.Header.Set("Accept", "application/json")

	if err := ctx.Err(); err != nil {
		return nil, 0, &domain.TransportError{URL: endpoint, Err: err}
	}
	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, 0, &domain.TransportError{URL: endpoint, Err: err}
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, 0, &domain.TransportError{URL: endpoint, Err: err}
		}
	}

	client.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		var retryAfter time.Duration
		if s, err := strconv.Atoi(string(resp.Header.Peek("Retry-After"))); err == nil && s > 0 {
			retryAfter = time.Duration(s) * time.Second
		}
		return nil, retryAfter, &domain.UpstreamAPIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp),
		}
	}

	var result T
	if err := sonic.Unmarshal(resp.Body(), &result); err != nil {
		return nil, 0, &domain.UpstreamAPIError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Message: "decode response: " + err.Error()}
	}
	return &result, 0, nil
}

func errorMessage(resp *fasthttp.Response) string {
	var body errorResponse
	if err := sonic.Unmarshal(resp.Body(), &body); err == nil {
		if len(body.Errors) > 0 && body.Errors[0].Message != "" {
			return body.Errors[0].Message
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fasthttp.StatusMessage(resp.StatusCode())
}
