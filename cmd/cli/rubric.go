package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/rubric"
)

func makeRubricImportCommand() *cobra.Command {
	var event uint
	var path string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import criteria from a YAML rubric",
		RunE: func(cmd *cobra.Command, args []string) error {
			return importRubric(event, path)
		},
	}
	cmd.Flags().UintVar(&event, "event", 0, "Event id")
	cmd.Flags().StringVar(&path, "file", "", "Rubric file")
	check(cmd.MarkFlagRequired("event"))
	check(cmd.MarkFlagRequired("file"))

	return cmd
}

func importRubric(event uint, path string) error {
	if _, err := rubric.Load(path); err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	nmj, err := newClient()
	if err != nil {
		return err
	}
	criteria, err := nmj.ImportRubric(event, content)
	if err != nil {
		return err
	}

	log.Info("Imported rubric", zap.Uint("event_id", event), zap.Int("num_criteria", len(criteria)))
	return nil
}

func makeRubricCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a rubric file and print the normalized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rubric.Load(args[0])
			if err != nil {
				return err
			}
			out, err := r.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
