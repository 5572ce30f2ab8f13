package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/metrorun/inductor/internal/induction"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one induction optimisation and print the roster",
		RunE:  runOptimize,
	}
	cmd.Flags().String("date", "", "Snapshot date (YYYY-MM-DD, default now)")
	cmd.Flags().Int("roster-size", 0, "Override the configured roster size")
	cmd.Flags().Int("budget", 0, "Override the solver budget in seconds")
	cmd.Flags().String("output", "json", "Output format (json|summary)")
	return cmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	req := induction.Request{}
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		at, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
		req.SnapshotTime = at.Add(21 * time.Hour) // nightly planning horizon
	}
	if n, _ := cmd.Flags().GetInt("roster-size"); n > 0 {
		req.RosterSize = n
	}
	if b, _ := cmd.Flags().GetInt("budget"); b > 0 {
		req.SolverBudget = time.Duration(b) * time.Second
	}

	res, err := d.planner.Optimise(cmd.Context(), req)
	if err != nil {
		return err
	}
	doc := induction.BuildDocument(res)

	if output, _ := cmd.Flags().GetString("output"); output == "summary" {
		printSummary(doc)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func printSummary(doc *induction.Document) {
	s := doc.Summary
	fmt.Printf("Roster %s  status=%s  selected=%d/%d  objective=%d  %dms\n",
		s.Date, s.Status, s.SelectedCount, s.FleetSize, s.ObjectiveCents, s.ExecutionMS)
	for _, v := range s.Violations {
		fmt.Printf("  violation: %s\n", v)
	}
	for _, a := range doc.BayAssignments {
		fmt.Printf("  bay %2d (%s)  %s\n", a.BayID, a.Depot, a.TrainNumber)
	}
}
