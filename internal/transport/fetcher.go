// Package transport acquires raw pages from external sites, either through a
// cookie-aware HTTP client or through a headless browser session.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forze-tracker/internal/config"
	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Page is the raw result of a successful fetch.
type Page struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
	Strategy   string
}

// Target describes one fetch. Rules decide what counts as a block page for
// this particular site.
type Target struct {
	URL     string
	Referer string
	Rules   BlockRules
}

// Fetcher never returns partial HTML without an error: a page that trips the
// target's rules comes back as *domain.BlockedError.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) (*Page, error)
	Name() string
}

type BlockRules struct {
	ChallengeMarkers []string
	LoginMarkers     []string
	MinLength        int
}

var challengeMarkers = []string{
	"Just a moment...",
	"cf-browser-verification",
	"challenge-platform",
	"Attention Required! | Cloudflare",
	"DDoS protection by",
	"Checking your browser before accessing",
	"Please wait while we verify",
}

var loginMarkers = []string{
	"Please sign in",
	"Sign in to continue",
	"Log in to continue",
	"requires authentication",
}

// DefaultRules apply to the tournament site: challenge pages and short bodies.
func DefaultRules() BlockRules {
	return BlockRules{
		ChallengeMarkers: challengeMarkers,
		MinLength:        constants.MinContentLength,
	}
}

// PlatformRules add login-wall detection for the matchmaking platform's pages.
func PlatformRules() BlockRules {
	r := DefaultRules()
	r.LoginMarkers = loginMarkers
	return r
}

// Inspect classifies a retrieved body. Challenge markers are checked first
// since challenge pages are usually short as well.
func (r BlockRules) Inspect(url, html string) error {
	lower := strings.ToLower(html)
	for _, m := range r.ChallengeMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return &domain.BlockedError{URL: url, Reason: domain.BlockChallenge, Marker: m, Length: len(html)}
		}
	}
	for _, m := range r.LoginMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return &domain.BlockedError{URL: url, Reason: domain.BlockLogin, Marker: m, Length: len(html)}
		}
	}
	if r.MinLength > 0 && len(html) < r.MinLength {
		return &domain.BlockedError{URL: url, Reason: domain.BlockTooShort, Length: len(html)}
	}
	return nil
}

// New picks the strategy configured for the tournament site.
func New(cfg *config.Config, logger zerolog.Logger) (Fetcher, error) {
	switch cfg.HLTVFetchMode {
	case config.FetchHTTP:
		return NewHTTPFetcher(logger)
	case config.FetchBrowser, "":
		return NewBrowserFetcher(BrowserOptions{ExecPath: cfg.ChromePath}, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.HLTVFetchMode)
	}
}
