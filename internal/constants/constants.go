package constants

import "time"

const (
	FaceitCacheTTL = 5 * time.Minute
	HLTVCacheTTL   = 10 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	ScrapeTimeout      = 45 * time.Second
	NavigationTimeout  = 30 * time.Second
)

const (
	MinPreNavigationDelay  = 1 * time.Second
	MaxPreNavigationDelay  = 3 * time.Second
	PostLoadSettle         = 2 * time.Second
	NetworkIdleQuietPeriod = 500 * time.Millisecond
	NetworkIdleMaxInflight = 2
	ViewportWidth          = 1920
	ViewportHeight         = 1080
)

const (
	MinContentLength = 1000
	MaxBodyBytes     = 8 << 20
	MaxHLTVMatches   = 200
	MaxPageMatches   = 15
)

const (
	FaceitHistoryPageSize = 100
	FaceitMaxHistoryPages = 20
	FaceitMaxMatches      = 200
	FaceitMaxRetries      = 2
	APIRetryBackoff       = 500 * time.Millisecond
	MaxRetryAfter         = 5 * time.Second
	PlayerFanOutLimit     = 8
	// Minimum roster members in a faction before a match counts as the team's.
	MinTeamMembersInFaction = 3
)

const (
	ShutdownTimeout = 5 * time.Second
)
