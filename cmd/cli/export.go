package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/pkg/targz"
)

func makeExportCommand() *cobra.Command {
	var event uint
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive event standings and team scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportEvent(event, output)
		},
	}
	cmd.Flags().UintVar(&event, "event", 0, "Event id")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Archive path, defaults to event-<id>.tar.gz")
	check(cmd.MarkFlagRequired("event"))

	cmd.AddCommand(makeInspectCommand())
	return cmd
}

func exportEvent(event uint, output string) error {
	if output == "" {
		output = fmt.Sprintf("event-%d.tar.gz", event)
	}

	nmj, err := newClient()
	if err != nil {
		return err
	}
	standings, err := nmj.LoadStandings(event)
	if err != nil {
		return err
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()

	archive := targz.NewWriter(file, standings.BuiltAt)
	content, err := json.MarshalIndent(standings, "", "  ")
	if err != nil {
		return err
	}
	if err := archive.AddFile("standings.json", content); err != nil {
		return err
	}

	for _, entry := range standings.Entries {
		scores, err := nmj.LoadTeamScores(entry.TeamID)
		if err != nil {
			return err
		}
		content, err := json.MarshalIndent(scores, "", "  ")
		if err != nil {
			return err
		}
		if err := archive.AddFile(teamFileName(entry), content); err != nil {
			return err
		}
	}

	if err := archive.Close(); err != nil {
		return err
	}

	log.Info("Exported event",
		zap.String("event", standings.Event.Name),
		zap.Int("num_teams", len(standings.Entries)),
		zap.String("output", output),
		zap.String("generated", units.HumanDuration(time.Since(standings.BuiltAt))+" ago"),
	)
	return file.Close()
}

// teamFileName is unique per team: different names may share a slug.
func teamFileName(entry *leaderboard.Entry) string {
	if entry.Slug == "" {
		return fmt.Sprintf("teams/team-%d.json", entry.TeamID)
	}
	return fmt.Sprintf("teams/%s-%d.json", entry.Slug, entry.TeamID)
}

type listing struct{}

func (listing) VisitDirectory(info fs.FileInfo) error {
	fmt.Printf("%s/\n", info.Name())
	return nil
}

func (listing) VisitFile(info fs.FileInfo, content io.Reader) error {
	fmt.Printf("%s\t%s\t%s ago\n",
		info.Name(),
		units.HumanSize(float64(info.Size())),
		units.HumanDuration(time.Since(info.ModTime())),
	)
	return nil
}

func makeInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the contents of an exported archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			return targz.Extract(file, listing{})
		},
	}
}
