package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bigredeye/notmanyjudges/pkg/client/notmanyjudges"
)

var log *zap.Logger

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

var (
	endpoint string

	rootCmd = &cobra.Command{
		Use:   "nmj",
		Short: "Notmanyjudges client",
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dump various info",
	}

	rubricCmd = &cobra.Command{
		Use:   "rubric",
		Short: "Manage judging criteria",
	}
)

func newClient() (*notmanyjudges.Client, error) {
	return notmanyjudges.NewClient(endpoint, os.Getenv("NMJ_TOKEN"))
}

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Server address")

	dumpCmd.AddCommand(makeDumpStandingsCommand())
	dumpCmd.AddCommand(makeDumpScoresCommand())
	rubricCmd.AddCommand(makeRubricImportCommand())
	rubricCmd.AddCommand(makeRubricCheckCommand())
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(rubricCmd)
	rootCmd.AddCommand(makeRecomputeCommand())
	rootCmd.AddCommand(makeConsolidateCommand())
	rootCmd.AddCommand(makeExportCommand())
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s", err.Error())
		os.Exit(1)
	}
}
