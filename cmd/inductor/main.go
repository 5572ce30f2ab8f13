package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "inductor"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Nightly trainset induction planner",
		Version: version,
		Long: `inductor decides which trainsets enter revenue service tomorrow.

It scores the fleet on fitness, work orders, branding, mileage and cleaning,
solves the selection and bay assignment exactly, and reports the roster with
per-train reasoning and compliance metrics.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().Bool("fixture", false, "Use a generated fixture fleet instead of the database")
	rootCmd.PersistentFlags().Int64("seed", 42, "Fixture generator seed")
	rootCmd.PersistentFlags().Int("fleet-size", 40, "Fixture fleet size")

	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFixtureCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
