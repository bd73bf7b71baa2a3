package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.ServerPort)
	assert.Equal(t, FetchBrowser, cfg.HLTVFetchMode)
	assert.Equal(t, 10*time.Minute, cfg.HLTVTTL)
	assert.Equal(t, 5*time.Minute, cfg.FaceitTTL)
	assert.Equal(t, "FORZE Reload", cfg.FaceitTeamName)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:5173")
	assert.False(t, cfg.FaceitScrapeFallback)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HLTV_BASE_URL", "http://mirror.local/")
	t.Setenv("HLTV_FETCH_MODE", "http")
	t.Setenv("HLTV_TTL", "90s")
	t.Setenv("FACEIT_MAX_RETRIES", "4")
	t.Setenv("FACEIT_SCRAPE_FALLBACK", "true")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://mirror.local", cfg.HLTVBaseURL)
	assert.Equal(t, FetchHTTP, cfg.HLTVFetchMode)
	assert.Equal(t, 90*time.Second, cfg.HLTVTTL)
	assert.Equal(t, 4, cfg.FaceitMaxRetries)
	assert.True(t, cfg.FaceitScrapeFallback)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("HLTV_FETCH_MODE", "carrier-pigeon")
	t.Setenv("HLTV_TTL", "-5m")
	t.Setenv("HLTV_TEAM_ID", "forze")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, FetchBrowser, cfg.HLTVFetchMode)
	assert.Equal(t, 10*time.Minute, cfg.HLTVTTL)
	assert.Equal(t, 12857, cfg.HLTVTeamID)
}
