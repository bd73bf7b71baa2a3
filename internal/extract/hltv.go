package extract

import (
	"fmt"
	"strconv"
	"strings"

	"forze-tracker/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Column positions of the tournament site's team matches table. Column 2 is
// the opponent's flag and carries no text.
const (
	colDate     = 0
	colEvent    = 1
	colOpponent = 3
	colMap      = 4
	colScore    = 5

	minMatchCells  = 6
	minPlayerCells = 5
)

var (
	matchesTable = Selectors("table.stats-table", "table")
	playersTable = Selectors("table.table-container.players-table", "table.players-table")
)

// MatchesResult carries the rows that parsed and the ones dropped on the way.
type MatchesResult struct {
	Matches []domain.MatchRecord
	Skipped []*domain.ParseError
}

func tableRows(table *goquery.Selection) *goquery.Selection {
	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		rows = table.Find("tr")
	}
	return rows
}

// HLTVMatches reads the first matches table of a team stats page.
func HLTVMatches(doc *goquery.Document) MatchesResult {
	res := MatchesResult{Matches: []domain.MatchRecord{}}
	tables, ok := matchesTable.TryExtract(doc.Selection)
	if !ok {
		return res
	}

	tableRows(tables.First()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minMatchCells {
			return
		}

		date, err := ParseDate(cellText(cells, colDate))
		if err != nil {
			res.Skipped = append(res.Skipped, err.(*domain.ParseError))
			return
		}
		our, opp, err := ParseScore(cellText(cells, colScore))
		if err != nil {
			res.Skipped = append(res.Skipped, err.(*domain.ParseError))
			return
		}

		res.Matches = append(res.Matches, domain.MatchRecord{
			ID:            matchID(tr),
			Date:          date,
			Event:         orDefault(cellText(cells, colEvent), "Unknown Event"),
			Opponent:      orDefault(cellText(cells, colOpponent), "Unknown Opponent"),
			Map:           orDefault(cellText(cells, colMap), "Unknown Map"),
			OurScore:      our,
			OpponentScore: opp,
			Source:        domain.SourceHLTV,
		})
	})
	return res
}

// matchID takes the map stats id from links like /stats/matches/mapstatsid/123/x.
func matchID(tr *goquery.Selection) string {
	href, ok := tr.Find(`a[href*="/stats/matches/"]`).First().Attr("href")
	if !ok {
		return ""
	}
	parts := strings.Split(strings.Trim(href, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if _, err := strconv.Atoi(parts[i]); err == nil {
			return parts[i]
		}
	}
	return ""
}

// HLTVPlayers reads the roster table of a team page. Ratings that do not
// parse are kept as zero; the row itself survives.
func HLTVPlayers(doc *goquery.Document, baseURL string) []domain.PlayerRecord {
	players := []domain.PlayerRecord{}
	table, ok := playersTable.TryExtract(doc.Selection)
	if !ok {
		return players
	}

	idx := 0
	table.First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minPlayerCells {
			return
		}

		rating, _ := strconv.ParseFloat(cellText(cells, 4), 64)
		maps, _ := strconv.Atoi(cellText(cells, 3))

		p := domain.PlayerRecord{
			ID:          fmt.Sprintf("player_%d", idx),
			Nickname:    cellText(cells, 0),
			Status:      playerStatus(cellText(cells, 1)),
			Rating:      rating,
			RatingScale: domain.RatingHLTV,
			Stats: domain.PlayerStats{
				MapsPlayed: maps,
				TimeInTeam: cellText(cells, 2),
			},
		}
		if href, ok := tr.Find(`a[href*="/player/"]`).First().Attr("href"); ok {
			// "/player/7998/sh1ro" -> "7998"
			if parts := strings.Split(href, "/"); len(parts) > 2 && parts[2] != "" {
				p.ID = parts[2]
			}
			p.ProfileURL = absolute(baseURL, href)
		}
		players = append(players, p)
		idx++
	})
	return players
}

func playerStatus(s string) domain.PlayerStatus {
	if strings.Contains(strings.ToUpper(s), "BENCH") {
		return domain.Benched
	}
	return domain.Starter
}

func absolute(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
