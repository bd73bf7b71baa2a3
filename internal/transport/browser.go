package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Runs before any page script so client-side bot checks see a regular browser.
const webdriverPatch = `Object.defineProperty(Navigator.prototype, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };`

type BrowserOptions struct {
	ExecPath          string
	Headful           bool
	NavigationTimeout time.Duration
	Settle            time.Duration
	// Delay picks the pause before navigation.
	Delay func() time.Duration
}

// BrowserFetcher launches an isolated browser process for every fetch. Nothing
// is pooled; the process is torn down on every exit path.
type BrowserFetcher struct {
	opts   BrowserOptions
	agent  func() string
	now    func() time.Time
	logger zerolog.Logger
}

func NewBrowserFetcher(opts BrowserOptions, logger zerolog.Logger) *BrowserFetcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = constants.NavigationTimeout
	}
	if opts.Settle <= 0 {
		opts.Settle = constants.PostLoadSettle
	}
	if opts.Delay == nil {
		opts.Delay = func() time.Duration {
			return jitter(constants.MinPreNavigationDelay, constants.MaxPreNavigationDelay)
		}
	}
	return &BrowserFetcher{opts: opts, agent: randomUserAgent, now: time.Now, logger: logger}
}

func (f *BrowserFetcher) Name() string { return "browser" }

// session is one acquired browser process. release is safe to call once and
// must be deferred right after a successful acquire.
type session struct {
	ctx     context.Context
	release func()
}

func (f *BrowserFetcher) allocatorOptions(userAgent string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoFirstRun,
		chromedp.DisableGPU,
		chromedp.WindowSize(constants.ViewportWidth, constants.ViewportHeight),
		chromedp.UserAgent(userAgent),
	)
	if f.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ExecPath))
	}
	if f.opts.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

func (f *BrowserFetcher) acquire(ctx context.Context, url, userAgent string) (*session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocatorOptions(userAgent)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := chromedp.Cancel(browserCtx); err != nil && !errors.Is(err, context.Canceled) {
				f.logger.Debug().Err(err).Msg("browser close returned error")
			}
			browserCancel()
			allocCancel()
		})
	}

	// The first Run starts the process, so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, &domain.TransportError{URL: url, Err: fmt.Errorf("launch browser: %w", err)}
	}
	return &session{ctx: browserCtx, release: release}, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	start := f.now()
	ua := f.agent()

	s, err := f.acquire(ctx, target.URL, ua)
	if err != nil {
		f.logger.Error().Err(err).Str("url", target.URL).Msg("failed to acquire browser session")
		return nil, err
	}
	defer s.release()

	tracker := newNetworkTracker(f.now)
	var status atomic.Int64
	chromedp.ListenTarget(s.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.started(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.finished(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.finished(string(e.RequestID))
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument && e.Response != nil {
				status.CompareAndSwap(0, e.Response.Status)
			}
		}
	})

	headers := network.Headers{}
	for k, v := range navigationHeaders(target.Referer) {
		headers[k] = v
	}

	delay := f.opts.Delay()
	err = chromedp.Run(s.ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.EmulateViewport(constants.ViewportWidth, constants.ViewportHeight),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webdriverPatch).Do(ctx)
			return err
		}),
		chromedp.Sleep(delay),
	)
	if err != nil {
		return nil, &domain.TransportError{URL: target.URL, Err: fmt.Errorf("prepare page: %w", err)}
	}

	navCtx, cancel := context.WithTimeout(s.ctx, f.opts.NavigationTimeout)
	defer cancel()

	var html string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(target.URL),
		chromedp.ActionFunc(tracker.waitIdle),
		chromedp.Sleep(f.opts.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("navigation timeout after %s: %w", f.opts.NavigationTimeout, err)
		}
		f.logger.Warn().Err(err).Str("url", target.URL).Msg("browser navigation failed")
		return nil, &domain.TransportError{URL: target.URL, Err: err}
	}

	code := int(status.Load())
	blockErr := target.Rules.Inspect(target.URL, html)
	if code != 0 && (code < 200 || code >= 300) {
		if b, ok := blockErr.(*domain.BlockedError); ok && b.Reason != domain.BlockTooShort {
			return nil, blockErr
		}
		return nil, &domain.TransportError{URL: target.URL, StatusCode: code}
	}
	if blockErr != nil {
		f.logger.Warn().Err(blockErr).Str("url", target.URL).Msg("block page detected")
		return nil, blockErr
	}

	f.logger.Info().
		Str("url", target.URL).
		Int("status", code).
		Int("length", len(html)).
		Dur("pre_navigation_delay", delay).
		Int64("duration_ms", f.now().Sub(start).Milliseconds()).
		Msg("browser fetch completed")

	return &Page{
		URL:        target.URL,
		HTML:       html,
		StatusCode: code,
		FetchedAt:  f.now(),
		Strategy:   f.Name(),
	}, nil
}

// networkTracker approximates "network idle": at most
// NetworkIdleMaxInflight requests pending for a full quiet period.
type networkTracker struct {
	mu         sync.Mutex
	inflight   map[string]struct{}
	lastChange time.Time
	now        func() time.Time
	quiet      time.Duration
	maxPending int
	poll       time.Duration
}

func newNetworkTracker(now func() time.Time) *networkTracker {
	return &networkTracker{
		inflight:   make(map[string]struct{}),
		lastChange: now(),
		now:        now,
		quiet:      constants.NetworkIdleQuietPeriod,
		maxPending: constants.NetworkIdleMaxInflight,
		poll:       100 * time.Millisecond,
	}
}

func (t *networkTracker) started(id string) {
	t.mu.Lock()
	t.inflight[id] = struct{}{}
	t.lastChange = t.now()
	t.mu.Unlock()
}

func (t *networkTracker) finished(id string) {
	t.mu.Lock()
	if _, ok := t.inflight[id]; ok {
		delete(t.inflight, id)
		t.lastChange = t.now()
	}
	t.mu.Unlock()
}

func (t *networkTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) <= t.maxPending && t.now().Sub(t.lastChange) >= t.quiet
}

func (t *networkTracker) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	for {
		if t.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
