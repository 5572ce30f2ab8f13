package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/gate"
	"github.com/metrorun/inductor/internal/roster"
)

var at = time.Date(2025, 9, 15, 21, 0, 0, 0, time.UTC)

func candidate(id int, depot fleet.Depot, vendor fleet.Vendor, year int, critical, homeBay bool) roster.Candidate {
	t := &fleet.TrainsetData{
		Trainset: fleet.Trainset{
			ID: id, Vendor: vendor, HomeDepot: depot, YearCommissioned: year,
			Status: fleet.StatusInService,
		},
		HomeBayAvailable: homeBay,
	}
	if critical {
		t.Branding = &fleet.BrandingCommitment{
			Priority:      fleet.BrandingCritical,
			TargetHours:   100,
			CampaignStart: at.AddDate(0, -1, 0),
			CampaignEnd:   at.AddDate(0, 1, 0),
		}
	}
	return roster.Candidate{Train: t}
}

func selectedEntries(ids ...int) []roster.SelectedEntry {
	out := make([]roster.SelectedEntry, 0, len(ids))
	for _, id := range ids {
		e := roster.SelectedEntry{}
		e.TrainsetID = id
		out = append(out, e)
	}
	return out
}

func TestBuild_Distributions(t *testing.T) {
	m := &roster.Model{
		TakenAt: at,
		Candidates: []roster.Candidate{
			candidate(1, fleet.DepotA, fleet.VendorAlstom, 2023, true, true),
			candidate(2, fleet.DepotA, fleet.VendorBEML, 2019, false, true),
			candidate(3, fleet.DepotB, fleet.VendorAlstom, 2024, false, false),
			candidate(4, fleet.DepotB, fleet.VendorHyundaiRotem, 2017, true, true),
		},
	}
	r := &roster.Roster{Selected: selectedEntries(1, 2, 3, 4)}

	rep := Build(r, m, roster.DefaultParams())

	assert.Equal(t, 4, rep.TotalSelected)
	assert.Equal(t, 2, rep.Depots.DepotA)
	assert.Equal(t, 2, rep.Depots.DepotB)
	assert.Equal(t, 1.0, rep.Depots.BalanceRatio)
	assert.Equal(t, 2, rep.Age.NewTrains) // 2023 and 2024 within 5 years of 2025
	assert.Equal(t, 0.5, rep.Age.NewTrainRatio)
	assert.Equal(t, 2, rep.Vendors[fleet.VendorAlstom])
	assert.Equal(t, 0.5, rep.VendorRatios[fleet.VendorAlstom])
	assert.Equal(t, 2, rep.Branding.CriticalCampaigns)
	assert.Equal(t, 3, rep.Bays.HomeBayAvailable)
	assert.Equal(t, 0.75, rep.Bays.AvailabilityRatio)
	assert.Empty(t, rep.Violations)
	assert.Empty(t, rep.Notes)
}

func TestBuild_ViolationsAgainstImposedBounds(t *testing.T) {
	m := &roster.Model{
		TakenAt: at,
		Candidates: []roster.Candidate{
			candidate(1, fleet.DepotA, fleet.VendorAlstom, 2019, false, true),
			candidate(2, fleet.DepotA, fleet.VendorAlstom, 2019, false, true),
			candidate(3, fleet.DepotB, fleet.VendorAlstom, 2019, false, true),
		},
		Groups: []roster.GroupBound{
			{Name: roster.RuleDepotBalance, Members: []int{0, 1}, Lo: 2, Hi: 2},
			{Name: roster.RuleHomeBay, Members: []int{0, 1, 2}, Lo: 1, Hi: 3},
		},
	}
	// Only one depot-A train made it; the imposed band wanted two.
	r := &roster.Roster{Selected: selectedEntries(1, 3)}

	rep := Build(r, m, roster.DefaultParams())
	require.Len(t, rep.Violations, 1)
	v := rep.Violations[0]
	assert.Equal(t, roster.RuleDepotBalance, v.Rule)
	assert.Equal(t, 1, v.Observed)
	assert.Equal(t, "2..2", v.Band)
	assert.Equal(t, "depot_balance: observed 1, band 2..2", v.String())
}

func TestBuild_RelaxationNote(t *testing.T) {
	m := &roster.Model{
		TakenAt:    at,
		Candidates: []roster.Candidate{candidate(1, fleet.DepotA, fleet.VendorAlstom, 2019, false, true)},
	}
	r := &roster.Roster{Selected: selectedEntries(1), UsedRelaxedTiers: true}

	rep := Build(r, m, roster.DefaultParams())
	assert.Contains(t, rep.Notes, NoteRelaxedFitness)
}

func TestBuild_EmptyRoster(t *testing.T) {
	rep := Build(&roster.Roster{}, &roster.Model{TakenAt: at}, roster.DefaultParams())
	assert.Equal(t, 0, rep.TotalSelected)
	assert.Empty(t, rep.Violations)
}

func TestTierNote(t *testing.T) {
	assert.Equal(t, "strict=24", TierNote(&gate.Result{StrictCount: 24}))
	assert.Equal(t, "strict=20 relaxed=3 fallback=1",
		TierNote(&gate.Result{StrictCount: 20, RelaxedCount: 3, FallbackCount: 1}))
}
