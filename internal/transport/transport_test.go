package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"forze-tracker/internal/config"
	"forze-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longPage(body string) string {
	return "<html><head><title>FORZE</title></head><body>" + body + strings.Repeat("<p>filler</p>", 200) + "</body></html>"
}

func newTestHTTPFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(zerolog.Nop())
	require.NoError(t, err)
	f.agent = func() string { return "test-agent/1.0" }
	return f
}

func TestInspect(t *testing.T) {
	rules := PlatformRules()

	tests := []struct {
		name   string
		html   string
		reason domain.BlockReason
		ok     bool
	}{
		{name: "regular page", html: longPage("<table></table>"), ok: true},
		{name: "cloudflare challenge", html: longPage("<title>Just a moment...</title>"), reason: domain.BlockChallenge},
		{name: "challenge is case insensitive", html: longPage("CF-BROWSER-VERIFICATION"), reason: domain.BlockChallenge},
		{name: "login wall", html: longPage("Please sign in to view this team"), reason: domain.BlockLogin},
		{name: "short body", html: "<html></html>", reason: domain.BlockTooShort},
		{name: "short challenge reports challenge", html: "Just a moment...", reason: domain.BlockChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Inspect("https://example.test", tt.html)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var blocked *domain.BlockedError
			require.True(t, errors.As(err, &blocked))
			assert.Equal(t, tt.reason, blocked.Reason)
			assert.True(t, errors.Is(err, domain.ErrBlocked))
		})
	}
}

func TestDefaultRulesIgnoreLoginText(t *testing.T) {
	err := DefaultRules().Inspect("u", longPage("Please sign in"))
	assert.NoError(t, err)
}

func TestHTTPFetcher_Success(t *testing.T) {
	var gotUA, gotReferer, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(longPage("<table class=\"stats-table\"></table>")))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(t)
	page, err := f.Fetch(context.Background(), Target{URL: srv.URL + "/team", Referer: srv.URL, Rules: DefaultRules()})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.HTML, "stats-table")
	assert.Equal(t, "http", page.Strategy)
	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, srv.URL, gotReferer)
	assert.Contains(t, gotAccept, "text/html")
}

func TestHTTPFetcher_ChallengeWithErrorStatusIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("<html><title>Just a moment...</title></html>"))
	}))
	defer srv.Close()

	_, err := newTestHTTPFetcher(t).Fetch(context.Background(), Target{URL: srv.URL, Rules: DefaultRules()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlocked))
	assert.True(t, domain.Degraded(err))
}

func TestHTTPFetcher_ErrorStatusIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestHTTPFetcher(t).Fetch(context.Background(), Target{URL: srv.URL, Rules: DefaultRules()})
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.False(t, errors.Is(err, domain.ErrBlocked))
}

func TestHTTPFetcher_ShortBodyIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>tiny</html>"))
	}))
	defer srv.Close()

	_, err := newTestHTTPFetcher(t).Fetch(context.Background(), Target{URL: srv.URL, Rules: DefaultRules()})
	var blocked *domain.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, domain.BlockTooShort, blocked.Reason)
}

func TestHTTPFetcher_ReplaysCookies(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if c, err := r.Cookie("cf_clearance"); err == nil {
			seen = append(seen, c.Value)
		}
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "cf_clearance", Value: "token", Path: "/"})
		_, _ = w.Write([]byte(longPage("")))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(t)
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), Target{URL: srv.URL, Rules: DefaultRules()})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"token"}, seen)
}

func TestHTTPFetcher_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestHTTPFetcher(t).Fetch(ctx, Target{URL: srv.URL, Rules: DefaultRules()})
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestNetworkTracker_Idle(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	tr := newNetworkTracker(clock)

	for _, id := range []string{"a", "b", "c"} {
		tr.started(id)
	}
	now = now.Add(time.Second)
	assert.False(t, tr.idle(), "three requests in flight")

	tr.finished("a")
	assert.False(t, tr.idle(), "quiet period restarts on change")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, tr.idle(), "two in flight for a full quiet period")

	tr.finished("unknown")
	assert.True(t, tr.idle(), "unknown ids do not reset the quiet period")
}

func TestNetworkTracker_WaitIdleHonoursContext(t *testing.T) {
	tr := newNetworkTracker(time.Now)
	for _, id := range []string{"a", "b", "c"} {
		tr.started(id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := tr.waitIdle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(time.Second, 3*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
	assert.Equal(t, time.Second, jitter(time.Second, time.Second))
}

func TestNew_SelectsStrategy(t *testing.T) {
	f, err := New(&config.Config{HLTVFetchMode: config.FetchHTTP}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http", f.Name())

	f, err = New(&config.Config{HLTVFetchMode: config.FetchBrowser}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "browser", f.Name())

	_, err = New(&config.Config{HLTVFetchMode: "carrier-pigeon"}, zerolog.Nop())
	assert.Error(t, err)
}
