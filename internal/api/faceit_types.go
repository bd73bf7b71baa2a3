package api

// Wire shapes of the platform data API. Only the fields the tracker reads
// are declared.

type TeamSearchResponse struct {
	Items []TeamSearchItem `json:"items"`
}

type TeamSearchItem struct {
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Game     string `json:"game"`
}

type TeamResponse struct {
	TeamID   string       `json:"team_id"`
	Name     string       `json:"name"`
	Nickname string       `json:"nickname"`
	Game     string       `json:"game"`
	Members  []TeamMember `json:"members"`
}

type TeamMember struct {
	UserID     string `json:"user_id"`
	Nickname   string `json:"nickname"`
	SkillLevel int    `json:"skill_level"`
}

// StatsResponse mixes strings, numbers and arrays in lifetime, so it stays
// untyped and is read through the stat helpers.
type StatsResponse struct {
	Lifetime map[string]any `json:"lifetime"`
	Segments []StatsSegment `json:"segments"`
}

type StatsSegment struct {
	Type  string         `json:"type"`
	Mode  string         `json:"mode"`
	Label string         `json:"label"`
	Stats map[string]any `json:"stats"`
}

type PlayerResponse struct {
	PlayerID string                `json:"player_id"`
	Nickname string                `json:"nickname"`
	Games    map[string]PlayerGame `json:"games"`
}

type PlayerGame struct {
	SkillLevel int    `json:"skill_level"`
	FaceitElo  int    `json:"faceit_elo"`
	Region     string `json:"region"`
}

type HistoryResponse struct {
	Items []RawMatch `json:"items"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

// RawMatch covers both the history item and the match details shapes.
type RawMatch struct {
	MatchID         string                `json:"match_id"`
	CompetitionName string                `json:"competition_name"`
	StartedAt       int64                 `json:"started_at"`
	FinishedAt      int64                 `json:"finished_at"`
	Teams           map[string]RawFaction `json:"teams"`
	Results         RawResults            `json:"results"`
	DetailedResults []RawDetailedResult   `json:"detailed_results"`
	Voting          RawVoting             `json:"voting"`
}

// RawFaction: history items use team_id/nickname/players, match details use
// faction_id/name/roster.
type RawFaction struct {
	TeamID    string      `json:"team_id"`
	FactionID string      `json:"faction_id"`
	Nickname  string      `json:"nickname"`
	Name      string      `json:"name"`
	Players   []RawPlayer `json:"players"`
	Roster    []RawPlayer `json:"roster"`
}

type RawPlayer struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type RawResults struct {
	Winner string         `json:"winner"`
	Score  map[string]int `json:"score"`
}

type RawDetailedResult struct {
	Winner   string                     `json:"winner"`
	Factions map[string]RawFactionScore `json:"factions"`
}

type RawFactionScore struct {
	Score int `json:"score"`
}

type RawVoting struct {
	Map struct {
		Pick []string `json:"pick"`
	} `json:"map"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"errors"`
	Message string `json:"message"`
}
