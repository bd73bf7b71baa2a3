package api

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"forze-tracker/internal/constants"
	"forze-tracker/internal/domain"

	"github.com/cockroachdb/errors"
)

var (
	errNotOurs   = errors.New("team not found in either faction")
	errTiedMatch = errors.New("tied match has no winner")
)

// Identity says how to recognise the team inside a match: by its id, or by
// enough roster members sharing one faction.
type Identity struct {
	TeamID    string
	MemberIDs []string
}

func (f RawFaction) id() string {
	if f.TeamID != "" {
		return f.TeamID
	}
	return f.FactionID
}

func (f RawFaction) name() string {
	if f.Name != "" {
		return f.Name
	}
	return strings.TrimPrefix(f.Nickname, "team_")
}

func (f RawFaction) members() []RawPlayer {
	if len(f.Players) > 0 {
		return f.Players
	}
	return f.Roster
}

// factionKeys are sorted so identification does not depend on map order.
func (m RawMatch) factionKeys() []string {
	keys := make([]string, 0, len(m.Teams))
	for k := range m.Teams {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OurFaction returns the faction key ("faction1"/"faction2") the team played as.
func (m RawMatch) OurFaction(team Identity) (string, bool) {
	keys := m.factionKeys()
	if team.TeamID != "" {
		for _, k := range keys {
			if m.Teams[k].id() == team.TeamID {
				return k, true
			}
		}
	}
	members := make(map[string]struct{}, len(team.MemberIDs))
	for _, id := range team.MemberIDs {
		members[id] = struct{}{}
	}
	for _, k := range keys {
		n := 0
		for _, p := range m.Teams[k].members() {
			if _, ok := members[p.PlayerID]; ok {
				n++
			}
		}
		if n >= constants.MinTeamMembersInFaction {
			return k, true
		}
	}
	return "", false
}

// scores prefers round scores of a single-map detailed result and falls back
// to the series score.
func (m RawMatch) scores(ours, theirs string) (int, int) {
	if len(m.DetailedResults) == 1 {
		f := m.DetailedResults[0].Factions
		if o, ok := f[ours]; ok {
			if t, ok := f[theirs]; ok {
				return o.Score, t.Score
			}
		}
	}
	return m.Results.Score[ours], m.Results.Score[theirs]
}

func (m RawMatch) playedAt() time.Time {
	switch {
	case m.FinishedAt > 0:
		return time.Unix(m.FinishedAt, 0).UTC()
	case m.StartedAt > 0:
		return time.Unix(m.StartedAt, 0).UTC()
	}
	return time.Time{}
}

// Normalize maps a raw match onto a MatchRecord from the team's perspective.
// A tied score is rejected just like the scraped tables do.
func Normalize(m RawMatch, team Identity) (domain.MatchRecord, error) {
	ours, ok := m.OurFaction(team)
	if !ok {
		return domain.MatchRecord{}, &domain.ParseError{Field: "faction", Input: m.MatchID, Err: errNotOurs}
	}
	var theirs string
	for _, k := range m.factionKeys() {
		if k != ours {
			theirs = k
			break
		}
	}

	our, opp := m.scores(ours, theirs)
	if our == opp {
		return domain.MatchRecord{}, &domain.ParseError{Field: "score", Input: m.MatchID + " " + strconv.Itoa(our) + "-" + strconv.Itoa(opp), Err: errTiedMatch}
	}

	rec := domain.MatchRecord{
		ID:            m.MatchID,
		Date:          m.playedAt(),
		Event:         orDefault(m.CompetitionName, "Unknown Event"),
		Opponent:      "Unknown Opponent",
		Map:           "Unknown Map",
		OurScore:      our,
		OpponentScore: opp,
		Source:        domain.SourceFaceit,
	}
	if theirs != "" {
		rec.Opponent = orDefault(m.Teams[theirs].name(), rec.Opponent)
	}
	if picks := m.Voting.Map.Pick; len(picks) > 0 {
		rec.Map = orDefault(PrettyMapName(picks[0]), rec.Map)
	}
	return rec, nil
}

// merge overlays match details on a history item; details win where present.
func merge(history, details RawMatch) RawMatch {
	out := history
	if len(details.Teams) > 0 {
		out.Teams = details.Teams
	}
	if len(details.Results.Score) > 0 {
		out.Results = details.Results
	}
	if len(details.DetailedResults) > 0 {
		out.DetailedResults = details.DetailedResults
	}
	if len(details.Voting.Map.Pick) > 0 {
		out.Voting = details.Voting
	}
	if details.CompetitionName != "" {
		out.CompetitionName = details.CompetitionName
	}
	if details.FinishedAt > 0 {
		out.FinishedAt = details.FinishedAt
	}
	return out
}

// PrettyMapName turns "de_dust2" into "Dust2".
func PrettyMapName(raw string) string {
	s := strings.TrimSpace(raw)
	for _, p := range []string{"de_", "cs_", "ar_"} {
		s = strings.TrimPrefix(s, p)
	}
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// statNumber reads the first of keys that holds a number or numeric string.
func statNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func statInt(m map[string]any, keys ...string) int {
	v, _ := statNumber(m, keys...)
	return int(v)
}
