package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/models"
)

func makeDumpStandingsCommand() *cobra.Command {
	var event uint
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Dump event leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpStandings(event)
		},
	}
	cmd.Flags().UintVar(&event, "event", 0, "Event id")
	check(cmd.MarkFlagRequired("event"))

	return cmd
}

func dumpStandings(event uint) error {
	nmj, err := newClient()
	if err != nil {
		return err
	}

	standings, err := nmj.LoadStandings(event)
	if err != nil {
		return err
	}

	for _, entry := range standings.Entries {
		fmt.Printf("%s\t%s\t%s\n", rank(entry), entry.TeamName, average(entry.AvgScore))
	}
	return nil
}

func rank(entry *leaderboard.Entry) string {
	if !entry.Ranked() {
		return "-"
	}
	return fmt.Sprint(entry.Rank)
}

func average(avg *float64) string {
	if avg == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *avg)
}

func makeDumpScoresCommand() *cobra.Command {
	var team uint
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Dump panel scores of a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpScores(team)
		},
	}
	cmd.Flags().UintVar(&team, "team", 0, "Team id")
	check(cmd.MarkFlagRequired("team"))

	return cmd
}

func dumpScores(team uint) error {
	nmj, err := newClient()
	if err != nil {
		return err
	}

	scores, err := nmj.LoadTeamScores(team)
	if err != nil {
		return err
	}

	for _, slot := range models.PanelSlots {
		panel := scores.Slot(slot)
		if panel == nil {
			fmt.Printf("%s\t-\n", slot.Key())
			continue
		}
		criteria := maps.Keys(panel.Scores)
		slices.Sort(criteria)
		parts := make([]string, 0, len(criteria))
		for _, name := range criteria {
			parts = append(parts, fmt.Sprintf("%s=%d", name, panel.Scores[name]))
		}
		fmt.Printf("%s\t%d\t%s\n", slot.Key(), panel.Total, strings.Join(parts, " "))
	}
	fmt.Printf("avg\t%s\n", average(scores.AvgScore))
	return nil
}
