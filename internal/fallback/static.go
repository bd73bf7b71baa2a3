package fallback

import (
	"strconv"
	"time"

	"forze-tracker/internal/domain"
)

// Illustrative samples served when no live data was ever captured.

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func staticHLTVMatches() []domain.MatchRecord {
	return []domain.MatchRecord{
		{Date: day(2024, 12, 31), Event: "BLAST Premier World Final", Opponent: "NAVI", Map: "Mirage", OurScore: 16, OpponentScore: 14, Source: domain.SourceHLTV},
		{Date: day(2024, 12, 30), Event: "BLAST Premier World Final", Opponent: "Vitality", Map: "Inferno", OurScore: 13, OpponentScore: 16, Source: domain.SourceHLTV},
	}
}

func staticFaceitMatches() []domain.MatchRecord {
	return []domain.MatchRecord{
		{ID: "match_1", Date: day(2024, 12, 31), Event: "Unknown Event", Opponent: "NAVI", Map: "Mirage", OurScore: 16, OpponentScore: 14, Source: domain.SourceFaceit},
		{ID: "match_2", Date: day(2024, 12, 30), Event: "Unknown Event", Opponent: "Vitality", Map: "Inferno", OurScore: 13, OpponentScore: 16, Source: domain.SourceFaceit},
	}
}

func hltvPlayer(n int, nickname string, rating float64, maps, kills, deaths int, kd float64) domain.PlayerRecord {
	return domain.PlayerRecord{
		ID:          "player_" + strconv.Itoa(n),
		Nickname:    nickname,
		Status:      domain.Starter,
		Rating:      rating,
		RatingScale: domain.RatingHLTV,
		Stats: domain.PlayerStats{
			MapsPlayed: maps,
			Kills:      kills,
			Deaths:     deaths,
			KDRatio:    kd,
		},
		ProfileURL: "https://www.hltv.org/player/7998/" + nickname,
	}
}

func staticHLTVPlayers() []domain.PlayerRecord {
	return []domain.PlayerRecord{
		hltvPlayer(1, "sh1ro", 1.25, 45, 567, 420, 1.35),
		hltvPlayer(2, "interz", 1.18, 42, 489, 401, 1.22),
		hltvPlayer(3, "nafany", 1.12, 38, 423, 368, 1.15),
		hltvPlayer(4, "Ax1Le", 1.20, 40, 512, 400, 1.28),
		hltvPlayer(5, "Hobbit", 1.15, 35, 445, 377, 1.18),
	}
}

func staticFaceitPlayers() []domain.PlayerRecord {
	mk := func(id, nickname string, rating float64, maps int) domain.PlayerRecord {
		return domain.PlayerRecord{
			ID:          id,
			Nickname:    nickname,
			Status:      domain.Starter,
			Rating:      rating,
			RatingScale: domain.RatingFaceit,
			Stats:       domain.PlayerStats{MapsPlayed: maps},
			ProfileURL:  "https://www.faceit.com/en/players/" + nickname,
		}
	}
	return []domain.PlayerRecord{
		mk("faceit_player_1", "KusMe", 8, 327),
		mk("faceit_player_2", "FORZE_Player2", 7, 250),
	}
}

func staticTeam() domain.TeamInfo {
	return domain.TeamInfo{Name: "FORZE Reload", Level: 10, Elo: 1250}
}

func staticTeamStats() domain.TeamStats {
	return domain.TeamStats{
		TotalMatches: 45,
		Wins:         32,
		Losses:       13,
		WinRate:      71.1,
		AverageScore: "16-12",
	}
}
