// Package compliance projects a finished roster onto the declared soft
// targets: distribution metrics plus violations for any imposed bound whose
// realised value fell outside its band. No scheduling logic lives here.
package compliance

import (
	"fmt"
	"math"
	"strings"

	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/gate"
	"github.com/metrorun/inductor/internal/roster"
)

// NoteRelaxedFitness flags a roster that needed trains admitted below the
// strict fitness tier.
const NoteRelaxedFitness = "relaxed_fitness_used"

// DepotDistribution summarises the depot split of the roster.
type DepotDistribution struct {
	DepotA       int     `json:"depot_a"`
	DepotB       int     `json:"depot_b"`
	BalanceRatio float64 `json:"balance_ratio"` // min/max, 1.0 for a perfect split
}

// AgeDistribution summarises the share of newer trainsets.
type AgeDistribution struct {
	NewTrains     int     `json:"new_trains"`
	NewTrainRatio float64 `json:"new_train_ratio"`
}

// BrandingDistribution summarises critical-campaign coverage.
type BrandingDistribution struct {
	CriticalCampaigns int     `json:"critical_campaigns"`
	CriticalRatio     float64 `json:"critical_ratio"`
}

// BayAvailability summarises home-bay coverage of the roster.
type BayAvailability struct {
	HomeBayAvailable  int     `json:"home_bay_available"`
	AvailabilityRatio float64 `json:"availability_ratio"`
}

// Violation names a soft rule whose realised value missed its imposed band.
type Violation struct {
	Rule     string `json:"rule"`
	Observed int    `json:"observed"`
	Band     string `json:"band"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: observed %d, band %s", v.Rule, v.Observed, v.Band)
}

// Report carries the aggregate compliance picture for one roster.
type Report struct {
	TotalSelected int                      `json:"total_selected"`
	Depots        DepotDistribution        `json:"depot_distribution"`
	Age           AgeDistribution          `json:"age_distribution"`
	Vendors       map[fleet.Vendor]int     `json:"vendor_distribution"`
	VendorRatios  map[fleet.Vendor]float64 `json:"vendor_ratios"`
	Branding      BrandingDistribution     `json:"branding_priorities"`
	Bays          BayAvailability          `json:"bay_availability"`
	Notes         []string                 `json:"notes,omitempty"`
	Violations    []Violation              `json:"violations"`
}

// Build derives the report from the roster and the model it was extracted
// from. Violations are checked only against bounds the model actually
// imposed; an omitted sufficiency-guarded constraint cannot be violated.
func Build(r *roster.Roster, m *roster.Model, p roster.Params) Report {
	rep := Report{
		TotalSelected: len(r.Selected),
		Vendors:       map[fleet.Vendor]int{},
		VendorRatios:  map[fleet.Vendor]float64{},
	}
	if rep.TotalSelected == 0 {
		return rep
	}

	selected := map[int]bool{}
	for _, e := range r.Selected {
		selected[e.TrainsetID] = true
	}
	year := m.TakenAt.Year()

	for _, c := range m.Candidates {
		if !selected[c.Train.ID] {
			continue
		}
		t := c.Train
		if t.HomeDepot == fleet.DepotA {
			rep.Depots.DepotA++
		} else {
			rep.Depots.DepotB++
		}
		if year-t.YearCommissioned <= p.AgeNewYearsMax {
			rep.Age.NewTrains++
		}
		rep.Vendors[t.Vendor]++
		if t.ActiveCriticalBranding(m.TakenAt) {
			rep.Branding.CriticalCampaigns++
		}
		if t.HomeBayAvailable {
			rep.Bays.HomeBayAvailable++
		}
	}

	total := float64(rep.TotalSelected)
	lo, hi := rep.Depots.DepotA, rep.Depots.DepotB
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi > 0 {
		rep.Depots.BalanceRatio = round2(float64(lo) / float64(hi))
	}
	rep.Age.NewTrainRatio = round2(float64(rep.Age.NewTrains) / total)
	for v, n := range rep.Vendors {
		rep.VendorRatios[v] = round2(float64(n) / total)
	}
	rep.Branding.CriticalRatio = round2(float64(rep.Branding.CriticalCampaigns) / total)
	rep.Bays.AvailabilityRatio = round2(float64(rep.Bays.HomeBayAvailable) / total)

	if r.UsedRelaxedTiers {
		rep.Notes = append(rep.Notes, NoteRelaxedFitness)
	}
	rep.Violations = checkViolations(m, selected)
	return rep
}

// checkViolations compares the realised count of every imposed group bound
// against its band.
func checkViolations(m *roster.Model, selected map[int]bool) []Violation {
	violations := []Violation{}
	for _, g := range m.Groups {
		observed := 0
		for _, c := range g.Members {
			if selected[m.Candidates[c].Train.ID] {
				observed++
			}
		}
		if observed >= g.Lo && observed <= g.Hi {
			continue
		}
		violations = append(violations, Violation{
			Rule:     g.Name,
			Observed: observed,
			Band:     bandString(g, len(m.Candidates)),
		})
	}
	return violations
}

func bandString(g roster.GroupBound, poolSize int) string {
	if g.Hi >= poolSize {
		return fmt.Sprintf(">=%d", g.Lo)
	}
	return fmt.Sprintf("%d..%d", g.Lo, g.Hi)
}

// TierNote formats the tier mix for log and report summaries.
func TierNote(pool *gate.Result) string {
	parts := []string{fmt.Sprintf("strict=%d", pool.StrictCount)}
	if pool.RelaxedCount > 0 {
		parts = append(parts, fmt.Sprintf("relaxed=%d", pool.RelaxedCount))
	}
	if pool.FallbackCount > 0 {
		parts = append(parts, fmt.Sprintf("fallback=%d", pool.FallbackCount))
	}
	return strings.Join(parts, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
