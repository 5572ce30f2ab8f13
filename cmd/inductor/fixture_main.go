package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/fleet/fixture"
)

func newFixtureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fixture",
		Short: "Generate a synthetic fleet snapshot and print it as JSON",
		RunE:  runFixture,
	}
}

func runFixture(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetInt64("seed")
	size, _ := cmd.Flags().GetInt("fleet-size")

	src := fixture.Generate(seed, size, time.Now().UTC())
	snap, err := fleet.LoadSnapshot(cmd.Context(), src, time.Now().UTC())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
