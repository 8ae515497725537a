package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/pkg/slug"
)

func TestTeamFileNamesAreUnique(t *testing.T) {
	entries := []*leaderboard.Entry{
		{TeamID: 3, TeamName: "Team A", Slug: slug.Make("Team A")},
		{TeamID: 7, TeamName: "team-a", Slug: slug.Make("team-a")},
		{TeamID: 9, TeamName: "???"},
	}
	if entries[0].Slug != entries[1].Slug {
		t.Fatalf("expected colliding slugs, got %q and %q", entries[0].Slug, entries[1].Slug)
	}

	var names []string
	for _, entry := range entries {
		names = append(names, teamFileName(entry))
	}
	expected := []string{"teams/team-a-3.json", "teams/team-a-7.json", "teams/team-9.json"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Errorf("unexpected file names (-want +got):\n%s", diff)
	}
}
