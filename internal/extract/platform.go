package extract

import (
	"fmt"
	"regexp"
	"strings"

	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Stat keys produced by the text-pattern fallback.
const (
	StatWins          = "Wins"
	StatLosses        = "Losses"
	StatTotalMatches  = "Total Matches"
	StatWinRate       = "Win Rate"
	StatMaxWinStreak  = "Max Win Streak"
	StatMaxLossStreak = "Max Loss Streak"
)

var (
	statValues = Selectors(
		`[data-testid="stat-value"]`, ".stat-value", ".team-stat-value",
		".stat", ".metric", ".number", ".value", ".count", ".score",
	)

	teamName  = Selectors(`[data-testid="team-name"]`, ".team-name", "h1", ".team-title", ".title")
	teamLevel = Selectors(`[data-testid="team-level"]`, ".team-level", ".level", ".rank", ".tier")
	teamElo   = Selectors(`[data-testid="team-elo"]`, ".team-elo", ".elo", ".rating", ".score")

	matchItems = Selectors(
		`[data-testid="match-item"]`, ".match-item", ".game-history-item", ".match", ".game",
		"tr", ".history-item", ".result-item", ".game-result",
	)
	matchDate   = Selectors(`[data-testid="match-date"]`, ".match-date", ".date", ".time", ".timestamp", ".game-date")
	matchResult = Selectors(`[data-testid="match-result"]`, ".match-result", ".result", ".outcome", ".game-result", ".status")
	matchScore  = Selectors(`[data-testid="match-score"]`, ".match-score", ".score", ".result-score", ".game-score", ".final-score")
	matchMap    = Selectors(`[data-testid="match-map"]`, ".match-map", ".map", ".game-map", ".played-map")
)

type statPattern struct {
	re  *regexp.Regexp
	key string
}

// Order matters: for keys listed twice the earlier pattern wins.
var statPatterns = []statPattern{
	{regexp.MustCompile(`(?i)(\d+)\s*wins?\b`), StatWins},
	{regexp.MustCompile(`(?i)(\d+)\s*losses?\b`), StatLosses},
	{regexp.MustCompile(`(?i)(\d+)\s*matches?\b`), StatTotalMatches},
	{regexp.MustCompile(`(?i)(\d+)\s*games?\b`), StatTotalMatches},
	{regexp.MustCompile(`(?i)(\d+)\s*win\s*streak`), StatMaxWinStreak},
	{regexp.MustCompile(`(?i)(\d+)\s*loss\s*streak`), StatMaxLossStreak},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%?\s*win\s*rate`), StatWinRate},
	{regexp.MustCompile(`(?i)win\s*rate[:\s]*(\d+(?:\.\d+)?)`), StatWinRate},
}

// RecentMatch is a loosely parsed history item; any field may be empty.
type RecentMatch struct {
	Date   string `json:"date"`
	Result string `json:"result"`
	Score  string `json:"score"`
	Map    string `json:"map"`
}

// Outcome resolves the item to a win or loss, preferring the score.
func (m RecentMatch) Outcome() (domain.Outcome, bool) {
	if our, opp, err := ParseScore(m.Score); err == nil {
		if our > opp {
			return domain.Win, true
		}
		return domain.Loss, true
	}
	switch r := strings.ToUpper(strings.TrimSpace(m.Result)); {
	case r == "W" || strings.HasPrefix(r, "WIN"):
		return domain.Win, true
	case r == "L" || strings.HasPrefix(r, "LOS"):
		return domain.Loss, true
	}
	return "", false
}

// PlatformPage is what can be read off the platform's public team page.
type PlatformPage struct {
	Team   domain.TeamInfo
	Stats  map[string]string
	Recent []RecentMatch
}

func PlatformTeamPage(doc *goquery.Document) PlatformPage {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find("script, style, noscript").Remove()

	stats := patternStats(spacedText(body))
	for k, v := range selectorStats(body) {
		stats[k] = v
	}

	page := PlatformPage{Stats: stats, Recent: recentMatches(body)}
	if name, ok := teamName.Text(body); ok {
		page.Team.Name = name
	}
	if lvl, ok := teamLevel.Text(body); ok {
		if v, ok := firstNumber(lvl); ok {
			page.Team.Level = int(v)
		}
	}
	if elo, ok := teamElo.Text(body); ok {
		if v, ok := firstNumber(elo); ok {
			page.Team.Elo = int(v)
		}
	}
	return page
}

func selectorStats(root *goquery.Selection) map[string]string {
	out := map[string]string{}
	for _, s := range statValues {
		sel, ok := s.TryExtract(root)
		if !ok {
			continue
		}
		sel.Each(func(i int, el *goquery.Selection) {
			value := clean(el.Text())
			if value == "" || value == "N/A" {
				return
			}
			out[statLabel(el, i)] = value
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

func statLabel(el *goquery.Selection, i int) string {
	if l := clean(el.Prev().Text()); l != "" {
		return l
	}
	parent := el.Parent()
	if l := clean(parent.Find(".label").First().Text()); l != "" {
		return l
	}
	if l := clean(parent.Find(".title").First().Text()); l != "" {
		return l
	}
	return fmt.Sprintf("Stat %d", i+1)
}

func patternStats(text string) map[string]string {
	out := map[string]string{}
	for _, p := range statPatterns {
		if _, seen := out[p.key]; seen {
			continue
		}
		if m := p.re.FindStringSubmatch(text); m != nil {
			out[p.key] = m[1]
		}
	}
	return out
}

func recentMatches(root *goquery.Selection) []RecentMatch {
	out := []RecentMatch{}
	for _, s := range matchItems {
		items, ok := s.TryExtract(root)
		if !ok {
			continue
		}
		items.Slice(0, min(items.Length(), constants.MaxPageMatches)).Each(func(_ int, el *goquery.Selection) {
			m := RecentMatch{}
			m.Date, _ = matchDate.Text(el)
			m.Result, _ = matchResult.Text(el)
			m.Score, _ = matchScore.Text(el)
			m.Map, _ = matchMap.Text(el)
			if m.Date != "" && (m.Result != "" || m.Score != "") {
				out = append(out, m)
			}
		})
		if len(out) > 0 {
			break
		}
	}
	return out
}

// TeamStats folds the scraped key/value stats into the typed record. Missing
// totals are derived from the recent matches list.
func (p PlatformPage) TeamStats() domain.TeamStats {
	ts := domain.TeamStats{Extra: p.Stats}
	wins, hasWins := statInt(p.Stats, StatWins)
	losses, hasLosses := statInt(p.Stats, StatLosses)
	if !hasWins && !hasLosses {
		for _, m := range p.Recent {
			switch o, ok := m.Outcome(); {
			case !ok:
			case o == domain.Win:
				wins++
			default:
				losses++
			}
		}
	}
	ts.Wins, ts.Losses = wins, losses

	if total, ok := statInt(p.Stats, StatTotalMatches); ok && total >= wins+losses {
		ts.TotalMatches = total
	} else {
		ts.TotalMatches = wins + losses
	}

	if v, ok := firstNumber(p.Stats[StatWinRate]); ok {
		ts.WinRate = v
	} else {
		ts.WinRate = domain.Percent(ts.Wins, ts.TotalMatches)
	}
	return ts
}

func statInt(stats map[string]string, key string) (int, bool) {
	v, ok := firstNumber(stats[key])
	return int(v), ok
}
