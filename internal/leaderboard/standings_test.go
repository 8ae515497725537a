package leaderboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

func floatp(v float64) *float64 { return &v }

type ranked struct {
	Rank int
	Name string
}

func summarize(s *Standings) []ranked {
	res := make([]ranked, len(s.Entries))
	for i, e := range s.Entries {
		res[i] = ranked{e.Rank, e.TeamName}
	}
	return res
}

func TestRankOrdering(t *testing.T) {
	event := models.Event{ID: 1, Name: "winter-hack"}
	teams := []models.Team{
		{ID: 1, EventID: 1, Name: "Zeta"},
		{ID: 2, EventID: 1, Name: "Alpha"},
		{ID: 3, EventID: 1, Name: "Bravo"},
		{ID: 4, EventID: 1, Name: "Delta"},
		{ID: 5, EventID: 1, Name: "Charlie"},
		{ID: 6, EventID: 1, Name: "Echo"},
	}
	aggregates := []models.TeamScores{
		{TeamID: 1, AvgScore: floatp(38.5), Panels: []models.PanelScore{{Panel: models.Panel1, Total: 38}, {Panel: models.Panel3, Total: 39}}},
		{TeamID: 2, AvgScore: floatp(40), Panels: []models.PanelScore{{Panel: models.Panel2, Total: 40}}},
		{TeamID: 3, AvgScore: floatp(38.5), Panels: []models.PanelScore{{Panel: models.Panel1, Total: 38}, {Panel: models.Panel2, Total: 39}}},
		{TeamID: 4, AvgScore: floatp(12), Panels: []models.PanelScore{{Panel: models.Panel1, Total: 12}}},
		// Stale row without panels counts as unscored.
		{TeamID: 6, AvgScore: nil},
	}

	standings := Rank(event, teams, aggregates)

	expected := []ranked{
		{1, "Alpha"},
		{2, "Bravo"},
		{2, "Zeta"},
		{4, "Delta"},
		{0, "Charlie"},
		{0, "Echo"},
	}
	if diff := cmp.Diff(expected, summarize(standings)); diff != "" {
		t.Errorf("standings mismatch (-want +got):\n%s", diff)
	}

	zeta := standings.Entries[2]
	if zeta.Scored != 2 || zeta.Totals[0] == nil || *zeta.Totals[0] != 38 || zeta.Totals[1] != nil || *zeta.Totals[2] != 39 {
		t.Errorf("unexpected zeta totals: %+v", zeta)
	}
	if standings.Entries[4].Ranked() {
		t.Errorf("unscored team must not be ranked")
	}
}

func TestRankEmpty(t *testing.T) {
	standings := Rank(models.Event{ID: 7}, nil, nil)
	if len(standings.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(standings.Entries))
	}
}
