package domain

import (
	"fmt"
	"math"
	"time"
)

type MatchesPayload struct {
	Source      string        `json:"source"`
	Matches     []MatchRecord `json:"matches"`
	Total       int           `json:"total"`
	Wins        int           `json:"wins"`
	Losses      int           `json:"losses"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Error       string        `json:"error,omitempty"`
}

func NewMatchesPayload(source string, matches []MatchRecord, now time.Time) MatchesPayload {
	if matches == nil {
		matches = []MatchRecord{}
	}
	p := MatchesPayload{Source: source, Matches: matches, Total: len(matches), LastUpdated: now}
	for _, m := range matches {
		if m.Result() == Win {
			p.Wins++
		} else {
			p.Losses++
		}
	}
	return p
}

// WinRate is the percentage of wins rounded to one decimal.
func (p MatchesPayload) WinRate() float64 {
	return Percent(p.Wins, p.Total)
}

func (p MatchesPayload) AsFallback(cause string, now time.Time) MatchesPayload {
	p.Source = fallbackLabel(p.Source)
	p.Matches = append([]MatchRecord(nil), p.Matches...)
	p.Error = cause
	p.LastUpdated = now
	return p
}

type PlayersPayload struct {
	Source        string         `json:"source"`
	Players       []PlayerRecord `json:"players"`
	Total         int            `json:"total"`
	Starters      int            `json:"starters"`
	Benched       int            `json:"benched"`
	AverageRating string         `json:"averageRating"`
	LastUpdated   time.Time      `json:"lastUpdated"`
	Error         string         `json:"error,omitempty"`
}

func NewPlayersPayload(source string, players []PlayerRecord, scale RatingScale, now time.Time) PlayersPayload {
	if players == nil {
		players = []PlayerRecord{}
	}
	p := PlayersPayload{Source: source, Players: players, Total: len(players), LastUpdated: now}
	var sum float64
	for _, pl := range players {
		switch pl.Status {
		case Starter:
			p.Starters++
		case Benched:
			p.Benched++
		}
		sum += pl.Rating
	}
	p.AverageRating = formatAverage(sum, len(players), scale)
	return p
}

func (p PlayersPayload) AsFallback(cause string, now time.Time) PlayersPayload {
	p.Source = fallbackLabel(p.Source)
	p.Players = append([]PlayerRecord(nil), p.Players...)
	p.Error = cause
	p.LastUpdated = now
	return p
}

type RosterEntry struct {
	ID       string       `json:"id"`
	Nickname string       `json:"nickname"`
	Status   PlayerStatus `json:"status"`
	Rating30 string       `json:"rating30"`
}

type RosterPayload struct {
	Source        string        `json:"source"`
	Roster        []RosterEntry `json:"roster"`
	Total         int           `json:"total"`
	Starters      int           `json:"starters"`
	Benched       int           `json:"benched"`
	AverageRating string        `json:"averageRating"`
	LastUpdated   time.Time     `json:"lastUpdated"`
	Error         string        `json:"error,omitempty"`
}

// RosterFromPlayers projects a players payload onto the lighter roster shape.
func RosterFromPlayers(p PlayersPayload) RosterPayload {
	r := RosterPayload{
		Source:        p.Source,
		Roster:        make([]RosterEntry, 0, len(p.Players)),
		Total:         p.Total,
		Starters:      p.Starters,
		Benched:       p.Benched,
		AverageRating: p.AverageRating,
		LastUpdated:   p.LastUpdated,
		Error:         p.Error,
	}
	for _, pl := range p.Players {
		r.Roster = append(r.Roster, RosterEntry{
			ID:       pl.ID,
			Nickname: pl.Nickname,
			Status:   pl.Status,
			Rating30: pl.FormatRating(),
		})
	}
	return r
}

type TeamStatsPayload struct {
	Source      string    `json:"source"`
	Team        TeamInfo  `json:"team"`
	Stats       TeamStats `json:"stats"`
	LastUpdated time.Time `json:"lastUpdated"`
	Error       string    `json:"error,omitempty"`
}

func (p TeamStatsPayload) AsFallback(cause string, now time.Time) TeamStatsPayload {
	p.Source = fallbackLabel(p.Source)
	p.Error = cause
	p.LastUpdated = now
	return p
}

type TeamInfoPayload struct {
	Source      string    `json:"source"`
	Team        TeamInfo  `json:"team"`
	Members     int       `json:"members"`
	LastUpdated time.Time `json:"lastUpdated"`
	Error       string    `json:"error,omitempty"`
}

func (p TeamInfoPayload) AsFallback(cause string, now time.Time) TeamInfoPayload {
	p.Source = fallbackLabel(p.Source)
	p.Error = cause
	p.LastUpdated = now
	return p
}

type MatchesSummary struct {
	Matches []MatchRecord `json:"matches"`
	Total   int           `json:"total"`
	Wins    int           `json:"wins"`
	Losses  int           `json:"losses"`
}

// CombinedPayload aggregates the platform sub-resources. Errors lists the
// sub-resources that were served from fallback data.
type CombinedPayload struct {
	Source      string            `json:"source"`
	TeamInfo    TeamInfo          `json:"teamInfo"`
	TeamStats   TeamStats         `json:"teamStats"`
	Matches     MatchesSummary    `json:"matches"`
	LastUpdated time.Time         `json:"lastUpdated"`
	Errors      map[string]string `json:"errors,omitempty"`
}

type SourceTotals struct {
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"`
	Source  string  `json:"source"`
	Error   string  `json:"error,omitempty"`
}

type OverviewPayload struct {
	TotalMatches   int          `json:"totalMatches"`
	TotalWins      int          `json:"totalWins"`
	TotalLosses    int          `json:"totalLosses"`
	OverallWinRate float64      `json:"overallWinRate"`
	HLTV           SourceTotals `json:"hltv"`
	Faceit         SourceTotals `json:"faceit"`
	LastUpdated    time.Time    `json:"lastUpdated"`
}

// Percent returns part/total as a percentage rounded to one decimal.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func formatAverage(sum float64, n int, scale RatingScale) string {
	if scale == RatingFaceit {
		if n == 0 {
			return "0"
		}
		return fmt.Sprintf("%.0f", sum/float64(n))
	}
	if n == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", sum/float64(n))
}

func fallbackLabel(source string) string {
	if IsFallbackLabel(source) {
		return source
	}
	return source + fallbackSuffix
}
