package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"forze-tracker/internal/api"
	"forze-tracker/internal/cache"
	"forze-tracker/internal/domain"
	"forze-tracker/internal/service"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

type rateLimiter interface {
	GetRateLimitInfo() api.RateLimitInfo
}

type TrackerServer struct {
	hltv     *service.HLTVService
	faceit   *service.FaceitService
	overview *service.OverviewService
	cache    *cache.Cache
	limits   rateLimiter
	started  time.Time
	now      func() time.Time
	logger   zerolog.Logger
}

func NewTrackerServer(
	hltv *service.HLTVService,
	faceit *service.FaceitService,
	overview *service.OverviewService,
	c *cache.Cache,
	client *api.FaceitClient,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		hltv:     hltv,
		faceit:   faceit,
		overview: overview,
		cache:    c,
		limits:   client,
		started:  time.Now(),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *TrackerServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)

	mux.HandleFunc("GET /api/forze/matches", serve(s, s.hltv.Matches))
	mux.HandleFunc("GET /api/forze/players", serve(s, s.hltv.Players))
	mux.HandleFunc("GET /api/forze/roster", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, s.hltv.Roster(r.Context()))
	})

	mux.HandleFunc("GET /api/faceit/stats", serve(s, s.faceit.Stats))
	mux.HandleFunc("GET /api/faceit/matches", serve(s, s.faceit.Matches))
	mux.HandleFunc("GET /api/faceit/players", serve(s, s.faceit.Players))
	mux.HandleFunc("GET /api/faceit/combined", serve(s, s.faceit.Combined))

	mux.HandleFunc("GET /api/stats/overview", s.statsOverview)
	mux.HandleFunc("POST /api/cache/clear", s.clearCache)

	mux.HandleFunc("/", s.notFound)
	return mux
}

// serve adapts a service call into a handler. Degraded sources already come
// back as fallback payloads, so any error here is unexpected.
func serve[T any](s *TrackerServer, fetch func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := fetch(r.Context())
		if err != nil {
			s.internalError(w, r, "Internal server error", err)
			return
		}
		writeJSON(w, r, http.StatusOK, payload)
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	UptimeStr string            `json:"uptimeHuman"`
	Memory    map[string]string `json:"memory"`
	RateLimit api.RateLimitInfo `json:"rateLimit"`
}

func (s *TrackerServer) health(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	now := s.now()
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(s.started).Seconds(),
		UptimeStr: humanize.RelTime(s.started, now, "", ""),
		Memory: map[string]string{
			"heapAlloc": humanize.IBytes(m.HeapAlloc),
			"heapSys":   humanize.IBytes(m.HeapSys),
			"sys":       humanize.IBytes(m.Sys),
		},
		RateLimit: s.limits.GetRateLimitInfo(),
	})
}

func (s *TrackerServer) statsOverview(w http.ResponseWriter, r *http.Request) {
	payload, err := s.overview.Overview(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch stats overview", err)
		return
	}
	writeJSON(w, r, http.StatusOK, payload)
}

func (s *TrackerServer) clearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	zerolog.Ctx(r.Context()).Info().Msg("cache cleared")
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":   "Cache cleared successfully",
		"timestamp": s.now().UTC(),
	})
}

func (s *TrackerServer) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, map[string]string{
		"error": "Endpoint not found",
		"path":  r.URL.Path,
	})
}

func (s *TrackerServer) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	writeJSON(w, r, http.StatusInternalServerError, map[string]string{
		"error":   msg,
		"message": domain.Cause(err),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
