package api

import (
	"testing"
	"time"

	"forze-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterMatch() RawMatch {
	return RawMatch{
		MatchID:   "m1",
		StartedAt: 1733000000,
		Teams: map[string]RawFaction{
			"faction1": {FactionID: "x", Name: "Random 5", Roster: []RawPlayer{{PlayerID: "a"}, {PlayerID: "b"}, {PlayerID: "z"}}},
			"faction2": {FactionID: "y", Name: "team_KusMe", Roster: []RawPlayer{{PlayerID: "p1"}, {PlayerID: "p2"}, {PlayerID: "p3"}, {PlayerID: "q"}}},
		},
		Results: RawResults{Score: map[string]int{"faction1": 0, "faction2": 1}},
	}
}

func TestOurFaction_ByMembers(t *testing.T) {
	m := rosterMatch()

	key, ok := m.OurFaction(Identity{MemberIDs: []string{"p1", "p2", "p3", "p4", "p5"}})
	require.True(t, ok)
	assert.Equal(t, "faction2", key)

	_, ok = m.OurFaction(Identity{MemberIDs: []string{"p1", "p2"}})
	assert.False(t, ok, "two members are not enough")
}

func TestOurFaction_ByTeamID(t *testing.T) {
	key, ok := rosterMatch().OurFaction(Identity{TeamID: "x"})
	require.True(t, ok)
	assert.Equal(t, "faction1", key)
}

func TestNormalize_Defaults(t *testing.T) {
	rec, err := Normalize(rosterMatch(), Identity{MemberIDs: []string{"p1", "p2", "p3"}})
	require.NoError(t, err)

	assert.Equal(t, "m1", rec.ID)
	assert.Equal(t, "Unknown Event", rec.Event)
	assert.Equal(t, "Unknown Map", rec.Map)
	assert.Equal(t, "Random 5", rec.Opponent)
	assert.Equal(t, 1, rec.OurScore)
	assert.Equal(t, 0, rec.OpponentScore)
	assert.Equal(t, domain.Win, rec.Result())
	assert.True(t, rec.Date.Equal(time.Unix(1733000000, 0)))
}

func TestNormalize_DetailedScoresWin(t *testing.T) {
	m := rosterMatch()
	m.FinishedAt = 1733003600
	m.DetailedResults = []RawDetailedResult{{Factions: map[string]RawFactionScore{"faction1": {Score: 13}, "faction2": {Score: 11}}}}
	m.Voting.Map.Pick = []string{"de_ancient"}

	rec, err := Normalize(m, Identity{MemberIDs: []string{"p1", "p2", "p3"}})
	require.NoError(t, err)
	assert.Equal(t, 11, rec.OurScore)
	assert.Equal(t, 13, rec.OpponentScore)
	assert.Equal(t, domain.Loss, rec.Result())
	assert.Equal(t, "Ancient", rec.Map)
	assert.True(t, rec.Date.Equal(time.Unix(1733003600, 0)), "finish time preferred")
}

func TestNormalize_Rejects(t *testing.T) {
	_, err := Normalize(rosterMatch(), Identity{TeamID: "nobody"})
	assert.True(t, errors.Is(err, domain.ErrParse))

	tied := rosterMatch()
	tied.Results.Score = map[string]int{"faction1": 1, "faction2": 1}
	_, err = Normalize(tied, Identity{TeamID: "y"})
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestPrettyMapName(t *testing.T) {
	assert.Equal(t, "Dust2", PrettyMapName("de_dust2"))
	assert.Equal(t, "Mirage", PrettyMapName(" de_mirage "))
	assert.Equal(t, "Office", PrettyMapName("cs_office"))
	assert.Equal(t, "Inferno", PrettyMapName("Inferno"))
	assert.Equal(t, "", PrettyMapName(""))
}

func TestStatNumber(t *testing.T) {
	m := map[string]any{"a": "57.1%", "b": 12.0, "c": []any{"1"}, "d": "n/a"}

	v, ok := statNumber(m, "missing", "a")
	require.True(t, ok)
	assert.InDelta(t, 57.1, v, 1e-9)

	v, ok = statNumber(m, "b")
	require.True(t, ok)
	assert.InDelta(t, 12.0, v, 1e-9)

	_, ok = statNumber(m, "c", "d")
	assert.False(t, ok)
}
