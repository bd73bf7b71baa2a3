package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Source identifies which upstream produced a record.
type Source string

const (
	SourceHLTV   Source = "HLTV"
	SourceFaceit Source = "FACEIT"
)

const fallbackSuffix = " (Fallback)"

// Fallback returns the label used for synthetic payloads of this source.
func (s Source) Fallback() string {
	return string(s) + fallbackSuffix
}

// IsFallbackLabel reports whether a payload source label marks degraded data.
func IsFallbackLabel(label string) bool {
	return strings.HasSuffix(label, fallbackSuffix)
}

type Outcome string

const (
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

// Letter is the single-letter form the dashboard renders.
func (o Outcome) Letter() string {
	if o == Win {
		return "W"
	}
	return "L"
}

type PlayerStatus string

const (
	Starter PlayerStatus = "STARTER"
	Benched PlayerStatus = "BENCHED"
)

// RatingScale names the unit of PlayerRecord.Rating. Ratings on different
// scales are not comparable.
type RatingScale string

const (
	RatingHLTV   RatingScale = "hltv-rating"
	RatingFaceit RatingScale = "faceit-elo"
)

// MatchRecord is a single completed match. The outcome is always derived from
// the two scores and never stored.
type MatchRecord struct {
	ID            string
	Date          time.Time
	Event         string
	Opponent      string
	Map           string
	OurScore      int
	OpponentScore int
	Source        Source
}

func (m MatchRecord) Result() Outcome {
	if m.OurScore > m.OpponentScore {
		return Win
	}
	return Loss
}

type matchJSON struct {
	ID       string `json:"id,omitempty"`
	Date     string `json:"date"`
	DateISO  string `json:"dateISO"`
	Event    string `json:"event"`
	Opponent string `json:"opponent"`
	Map      string `json:"map"`
	Our      int    `json:"our"`
	Opp      int    `json:"opp"`
	Result   string `json:"result"`
	WL       string `json:"wl"`
	Source   Source `json:"source"`
}

func (m MatchRecord) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(matchJSON{
		ID:       m.ID,
		Date:     m.Date.Format("02.01.2006"),
		DateISO:  m.Date.Format(time.DateOnly),
		Event:    m.Event,
		Opponent: m.Opponent,
		Map:      m.Map,
		Our:      m.OurScore,
		Opp:      m.OpponentScore,
		Result:   fmt.Sprintf("%d:%d", m.OurScore, m.OpponentScore),
		WL:       m.Result().Letter(),
		Source:   m.Source,
	})
}

// PlayerStats is sparse: whatever the source does not report stays zero.
type PlayerStats struct {
	MapsPlayed  int
	Kills       int
	Deaths      int
	Assists     int
	KDRatio     float64
	WinRate     float64
	Headshots   int
	HeadshotPct float64
	MVPs        int
	TimeInTeam  string
}

type PlayerRecord struct {
	ID          string
	Nickname    string
	Status      PlayerStatus
	Rating      float64
	RatingScale RatingScale
	Stats       PlayerStats
	ProfileURL  string
}

// FormatRating renders the rating with the precision its scale uses.
func (p PlayerRecord) FormatRating() string {
	if p.RatingScale == RatingFaceit {
		return fmt.Sprintf("%.0f", p.Rating)
	}
	return fmt.Sprintf("%.2f", p.Rating)
}

type playerStatsJSON struct {
	Rating30           string `json:"rating30"`
	Maps               string `json:"maps"`
	KD                 string `json:"kd"`
	Kills              string `json:"kills"`
	Deaths             string `json:"deaths"`
	Assists            string `json:"assists"`
	WinRate            string `json:"winRate"`
	MVPs               string `json:"mvps"`
	Headshots          string `json:"headshots"`
	HeadshotPercentage string `json:"headshotPercentage"`
	TimeInTeam         string `json:"timeInTeam,omitempty"`
}

type playerJSON struct {
	ID          string          `json:"id"`
	Nickname    string          `json:"nickname"`
	Status      PlayerStatus    `json:"status"`
	Rating30    string          `json:"rating30"`
	RatingScale RatingScale     `json:"ratingScale"`
	Stats       playerStatsJSON `json:"stats"`
	ProfileURL  *string         `json:"profileUrl"`
}

func (p PlayerRecord) MarshalJSON() ([]byte, error) {
	rating := p.FormatRating()
	out := playerJSON{
		ID:          p.ID,
		Nickname:    p.Nickname,
		Status:      p.Status,
		Rating30:    rating,
		RatingScale: p.RatingScale,
		Stats: playerStatsJSON{
			Rating30:           rating,
			Maps:               fmt.Sprint(p.Stats.MapsPlayed),
			KD:                 fmt.Sprintf("%.2f", p.Stats.KDRatio),
			Kills:              fmt.Sprint(p.Stats.Kills),
			Deaths:             fmt.Sprint(p.Stats.Deaths),
			Assists:            fmt.Sprint(p.Stats.Assists),
			WinRate:            fmt.Sprintf("%.1f", p.Stats.WinRate),
			MVPs:               fmt.Sprint(p.Stats.MVPs),
			Headshots:          fmt.Sprint(p.Stats.Headshots),
			HeadshotPercentage: fmt.Sprintf("%.1f", p.Stats.HeadshotPct),
			TimeInTeam:         p.Stats.TimeInTeam,
		},
	}
	if p.ProfileURL != "" {
		out.ProfileURL = &p.ProfileURL
	}
	return sonic.Marshal(out)
}

type TeamInfo struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	Elo   int    `json:"elo"`
}

// TeamStats is the aggregate record of a team on one source. Extra keeps
// scraped values that have no typed field.
type TeamStats struct {
	TotalMatches int               `json:"totalMatches"`
	Wins         int               `json:"wins"`
	Losses       int               `json:"losses"`
	WinRate      float64           `json:"winRate"`
	AverageScore string            `json:"averageScore,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}
