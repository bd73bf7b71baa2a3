package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"forze-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type FetchMode string

const (
	FetchBrowser FetchMode = "browser"
	FetchHTTP    FetchMode = "http"
)

type Config struct {
	ServerPort  string
	LogLevel    string
	CORSOrigins []string

	HLTVBaseURL   string
	HLTVTeamID    int
	HLTVTeamSlug  string
	HLTVFetchMode FetchMode
	HLTVTTL       time.Duration
	ChromePath    string

	FaceitAPIKey         string
	FaceitBaseURL        string
	FaceitTeamID         string
	FaceitTeamName       string
	FaceitGame           string
	FaceitTTL            time.Duration
	FaceitMaxMatches     int
	FaceitMaxRetries     int
	FaceitScrapeFallback bool
	FaceitTeamPageURL    string
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://frontend:3000",
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", getEnv("PORT", "3001")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", defaultOrigins),

		HLTVBaseURL:   strings.TrimRight(getEnv("HLTV_BASE_URL", "https://www.hltv.org"), "/"),
		HLTVTeamID:    getEnvInt("HLTV_TEAM_ID", 12857),
		HLTVTeamSlug:  getEnv("HLTV_TEAM_SLUG", "forze-reload"),
		HLTVFetchMode: FetchMode(getEnv("HLTV_FETCH_MODE", string(FetchBrowser))),
		HLTVTTL:       getEnvDuration("HLTV_TTL", constants.HLTVCacheTTL),
		ChromePath:    getEnv("CHROME_PATH", ""),

		FaceitAPIKey:         getEnv("FACEIT_API_KEY", ""),
		FaceitBaseURL:        strings.TrimRight(getEnv("FACEIT_BASE_URL", "https://open.faceit.com/data/v4"), "/"),
		FaceitTeamID:         getEnv("FACEIT_TEAM_ID", ""),
		FaceitTeamName:       getEnv("FACEIT_TEAM_NAME", "FORZE Reload"),
		FaceitGame:           getEnv("FACEIT_GAME", "cs2"),
		FaceitTTL:            getEnvDuration("FACEIT_TTL", constants.FaceitCacheTTL),
		FaceitMaxMatches:     getEnvInt("FACEIT_MAX_MATCHES", constants.FaceitMaxMatches),
		FaceitMaxRetries:     getEnvInt("FACEIT_MAX_RETRIES", constants.FaceitMaxRetries),
		FaceitScrapeFallback: getEnvBool("FACEIT_SCRAPE_FALLBACK", false),
		FaceitTeamPageURL:    getEnv("FACEIT_TEAM_PAGE_URL", ""),
	}

	if cfg.HLTVFetchMode != FetchBrowser && cfg.HLTVFetchMode != FetchHTTP {
		logger.Warn().Str("mode", string(cfg.HLTVFetchMode)).Msg("unknown fetch mode, using browser")
		cfg.HLTVFetchMode = FetchBrowser
	}

	if cfg.FaceitAPIKey == "" {
		logger.Warn().Msg("FACEIT_API_KEY is not set, platform endpoints will serve fallback data")
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("hltv_base_url", cfg.HLTVBaseURL).
		Int("hltv_team_id", cfg.HLTVTeamID).
		Str("hltv_fetch_mode", string(cfg.HLTVFetchMode)).
		Dur("hltv_ttl", cfg.HLTVTTL).
		Str("faceit_team", cfg.FaceitTeamName).
		Dur("faceit_ttl", cfg.FaceitTTL).
		Bool("faceit_scrape_fallback", cfg.FaceitScrapeFallback).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
