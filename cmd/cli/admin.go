package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func makeRecomputeCommand() *cobra.Command {
	var team uint
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute the average score of a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			nmj, err := newClient()
			if err != nil {
				return err
			}
			scores, err := nmj.Recompute(team)
			if err != nil {
				return err
			}
			log.Info("Recomputed average",
				zap.Uint("team_id", team),
				zap.String("avg_score", average(scores.AvgScore)),
				zap.Int64("version", scores.Version),
			)
			return nil
		},
	}
	cmd.Flags().UintVar(&team, "team", 0, "Team id")
	check(cmd.MarkFlagRequired("team"))

	return cmd
}

func makeConsolidateCommand() *cobra.Command {
	var team uint
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge the panel feedback of a team into a single summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			nmj, err := newClient()
			if err != nil {
				return err
			}
			scores, err := nmj.Consolidate(team)
			if err != nil {
				return err
			}
			if scores.ConsolidatedFeedback != nil {
				cmd.Println(*scores.ConsolidatedFeedback)
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&team, "team", 0, "Team id")
	check(cmd.MarkFlagRequired("team"))

	return cmd
}
