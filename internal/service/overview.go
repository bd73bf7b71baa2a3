package service

import (
	"context"
	"time"

	"forze-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type matchesFetcher interface {
	FetchMatches(ctx context.Context) (domain.MatchesPayload, error)
}

type statsFetcher interface {
	FetchStats(ctx context.Context) (domain.TeamStatsPayload, error)
}

// OverviewService merges tournament match totals with platform stats. A
// failed source contributes zeros; the overview fails only when both do.
type OverviewService struct {
	hltv   matchesFetcher
	faceit statsFetcher
	now    func() time.Time
	logger zerolog.Logger
}

func NewOverviewService(hltv *HLTVService, faceit *FaceitService, logger zerolog.Logger) *OverviewService {
	return &OverviewService{hltv: hltv, faceit: faceit, now: time.Now, logger: logger}
}

func (s *OverviewService) Overview(ctx context.Context) (domain.OverviewPayload, error) {
	var (
		matches          domain.MatchesPayload
		stats            domain.TeamStatsPayload
		hltvErr, platErr error
	)

	// Neither goroutine returns an error so one failure never cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		matches, hltvErr = s.hltv.FetchMatches(ctx)
		return nil
	})
	g.Go(func() error {
		stats, platErr = s.faceit.FetchStats(ctx)
		return nil
	})
	_ = g.Wait()

	if hltvErr != nil && platErr != nil {
		return domain.OverviewPayload{}, errors.Wrap(errors.CombineErrors(hltvErr, platErr), "failed to fetch overview")
	}

	out := domain.OverviewPayload{LastUpdated: s.now()}

	if hltvErr != nil {
		s.logger.Warn().Err(hltvErr).Msg("tournament source unavailable for overview")
		out.HLTV = domain.SourceTotals{Source: domain.SourceHLTV.Fallback(), Error: domain.Cause(hltvErr)}
	} else {
		out.HLTV = domain.SourceTotals{
			Matches: matches.Total,
			Wins:    matches.Wins,
			Losses:  matches.Losses,
			WinRate: matches.WinRate(),
			Source:  matches.Source,
		}
	}

	if platErr != nil {
		s.logger.Warn().Err(platErr).Msg("platform source unavailable for overview")
		out.Faceit = domain.SourceTotals{Source: domain.SourceFaceit.Fallback(), Error: domain.Cause(platErr)}
	} else {
		out.Faceit = domain.SourceTotals{
			Matches: stats.Stats.TotalMatches,
			Wins:    stats.Stats.Wins,
			Losses:  stats.Stats.Losses,
			WinRate: domain.Percent(stats.Stats.Wins, stats.Stats.TotalMatches),
			Source:  stats.Source,
		}
	}

	out.TotalMatches = out.HLTV.Matches + out.Faceit.Matches
	out.TotalWins = out.HLTV.Wins + out.Faceit.Wins
	out.TotalLosses = out.HLTV.Losses + out.Faceit.Losses
	out.OverallWinRate = domain.Percent(out.TotalWins, out.TotalMatches)
	return out, nil
}
