package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

// HTTPFetcher issues plain requests with browser-like headers. The cookie jar
// is shared across requests so challenge cookies set by a host are replayed.
type HTTPFetcher struct {
	client *http.Client
	agent  func() string
	now    func() time.Time
	logger zerolog.Logger
}

func NewHTTPFetcher(logger zerolog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &HTTPFetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: constants.NavigationTimeout,
		},
		agent:  randomUserAgent,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, &domain.TransportError{URL: target.URL, Err: err}
	}
	for k, v := range navigationHeaders(target.Referer) {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", f.agent())

	start := f.now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn().Err(err).Str("url", target.URL).Msg("http fetch failed")
		return nil, &domain.TransportError{URL: target.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxBodyBytes))
	if err != nil {
		return nil, &domain.TransportError{URL: target.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	html := string(body)

	blockErr := target.Rules.Inspect(target.URL, html)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Challenge pages usually come with 403/503; report them as blocks.
		if b, ok := blockErr.(*domain.BlockedError); ok && b.Reason != domain.BlockTooShort {
			f.logger.Warn().Err(blockErr).Str("url", target.URL).Int("status", resp.StatusCode).Msg("block page detected")
			return nil, blockErr
		}
		return nil, &domain.TransportError{URL: target.URL, StatusCode: resp.StatusCode}
	}
	if blockErr != nil {
		f.logger.Warn().Err(blockErr).Str("url", target.URL).Msg("block page detected")
		return nil, blockErr
	}

	f.logger.Debug().
		Str("url", target.URL).
		Int("status", resp.StatusCode).
		Int("length", len(html)).
		Int64("duration_ms", f.now().Sub(start).Milliseconds()).
		Msg("http fetch completed")

	return &Page{
		URL:        target.URL,
		HTML:       html,
		StatusCode: resp.StatusCode,
		FetchedAt:  f.now(),
		Strategy:   f.Name(),
	}, nil
}
