// Package roster assembles the constraint model for one induction run and
// turns solver valuations back into an operating roster. The model is built
// per call; no state survives between invocations.
package roster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/gate"
	"github.com/metrorun/inductor/internal/score"
)

// Soft-constraint rule names, surfaced in compliance violations.
const (
	RuleDepotBalance     = "depot_balance"
	RuleAgeDiversity     = "age_diversity"
	RuleVendorDiversity  = "vendor_diversity"
	RuleCriticalBranding = "critical_branding"
	RuleMileageBand      = "mileage_band"
	RuleHomeBay          = "home_bay_preference"
)

// Params carries the tunable bounds of the constraint model.
type Params struct {
	TargetSize          int
	DepotBalanceLo      int
	DepotBalanceHi      int
	AgeNewYearsMax      int
	AgeDiversityMin     int
	VendorMin           int
	CriticalBrandingMin int
	MileageBandLo       int
	MileageBandHi       int
	HomeBayMin          int
}

// DefaultParams returns the production bounds for a 24-train roster.
func DefaultParams() Params {
	return Params{
		TargetSize:          24,
		DepotBalanceLo:      9,
		DepotBalanceHi:      15,
		AgeNewYearsMax:      5,
		AgeDiversityMin:     8,
		VendorMin:           4,
		CriticalBrandingMin: 6,
		MileageBandLo:       50_000,
		MileageBandHi:       150_000,
		HomeBayMin:          18,
	}
}

// Candidate is one eligible trainset with its solver coefficients.
type Candidate struct {
	Train *fleet.TrainsetData
	Score score.Score
	Tier  gate.Tier

	// ObjectiveCents is 100x the priority score, the x[t] coefficient.
	ObjectiveCents int64

	// FixedZero pins x[t] = 0: a fallback-tier train with invalid fitness or
	// a blocking job, excluded because enough strict/relaxed trains exist.
	FixedZero bool
}

// GroupBound is a soft cardinality bound over a candidate subset. Hi equal
// to the pool size leaves the upper side unbounded.
type GroupBound struct {
	Name    string
	Members []int // candidate indices
	Lo      int
	Hi      int
}

// Model is the assembled selection-and-assignment problem.
type Model struct {
	Target     int
	Candidates []Candidate
	Groups     []GroupBound
	Bays       []fleet.StablingBay // available bays only, id order

	// BayBonus[c][b] is the y[c,b] objective coefficient:
	// round(10 * accessibility(b) * compatibility(c,b)).
	BayBonus [][]int64

	TakenAt time.Time
}

// Status is the solver verdict for a model.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// Solution is a valuation of the decision variables.
type Solution struct {
	Status         Status
	ObjectiveCents int64
	Selected       []int       // candidate indices, ascending
	BayIdx         map[int]int // candidate index -> index into Model.Bays
}

// Solver is the single seam to the optimisation engine. Implementations
// must be deterministic for a fixed model and honour the wall-clock budget;
// a timeout with a feasible incumbent is reported as feasible.
type Solver interface {
	Solve(ctx context.Context, m *Model, budget time.Duration) (*Solution, error)
}

// Build assembles the model from the gated pool. Soft constraints are added
// only when the pool can satisfy them in isolation (the sufficiency rule).
func Build(snap *fleet.Snapshot, pool *gate.Result, scores map[int]score.Score, p Params) (*Model, error) {
	bays := snap.AvailableBays()
	if len(bays) < p.TargetSize {
		return nil, fmt.Errorf("only %d available bays for a %d-train roster", len(bays), p.TargetSize)
	}

	m := &Model{Target: p.TargetSize, Bays: bays, TakenAt: snap.TakenAt}

	for _, adm := range pool.Pool {
		sc := scores[adm.Train.ID]
		m.Candidates = append(m.Candidates, Candidate{
			Train:          adm.Train,
			Score:          sc,
			Tier:           adm.Tier,
			ObjectiveCents: sc.ObjectiveCents(),
		})
	}
	// Best-first candidate order; keeps solving and extraction stable under
	// input permutation.
	sort.Slice(m.Candidates, func(i, j int) bool {
		return score.Less(m.Candidates[i].Score, m.Candidates[j].Score)
	})

	m.fixFallbackCandidates(pool, p)
	m.addSoftConstraints(p)
	m.computeBayBonus()
	return m, nil
}

// fixFallbackCandidates pins unfit fallback-tier trains to zero, but only
// when the strict and relaxed tiers alone can fill the roster: the gate has
// otherwise already proven the fallback trains necessary.
func (m *Model) fixFallbackCandidates(pool *gate.Result, p Params) {
	if pool.StrictCount+pool.RelaxedCount < p.TargetSize {
		return
	}
	for i := range m.Candidates {
		c := &m.Candidates[i]
		if c.Tier != gate.TierFallback {
			continue
		}
		if c.Train.ValidCertCount(m.TakenAt) == 0 || c.Train.HasOpenEmergencyJob() {
			c.FixedZero = true
		}
	}
}

func (m *Model) addSoftConstraints(p Params) {
	n := len(m.Candidates)
	taken := m.TakenAt

	var depotA, newTrains, critical, band, homeBay []int
	vendorMembers := map[fleet.Vendor][]int{}
	depotSeen := map[fleet.Depot]bool{}

	for i, c := range m.Candidates {
		t := c.Train
		depotSeen[t.HomeDepot] = true
		if t.HomeDepot == fleet.DepotA {
			depotA = append(depotA, i)
		}
		if taken.Year()-t.YearCommissioned <= p.AgeNewYearsMax {
			newTrains = append(newTrains, i)
		}
		vendorMembers[t.Vendor] = append(vendorMembers[t.Vendor], i)
		if t.ActiveCriticalBranding(taken) {
			critical = append(critical, i)
		}
		if km := t.Mileage.TotalKM; km >= p.MileageBandLo && km <= p.MileageBandHi {
			band = append(band, i)
		}
		if t.HomeBayAvailable {
			homeBay = append(homeBay, i)
		}
	}

	// S1 depot balance: imposed only when both depots field candidates.
	if depotSeen[fleet.DepotA] && depotSeen[fleet.DepotB] {
		m.Groups = append(m.Groups, GroupBound{
			Name: RuleDepotBalance, Members: depotA,
			Lo: p.DepotBalanceLo, Hi: p.DepotBalanceHi,
		})
	}

	// S2 age diversity: imposed only with at least the minimum new trains.
	if len(newTrains) >= p.AgeDiversityMin {
		m.Groups = append(m.Groups, GroupBound{
			Name: RuleAgeDiversity, Members: newTrains,
			Lo: p.AgeDiversityMin, Hi: n,
		})
	}

	// S3 vendor diversity: one bound per vendor with enough candidates.
	for _, v := range fleet.Vendors {
		if members := vendorMembers[v]; len(members) >= p.VendorMin {
			m.Groups = append(m.Groups, GroupBound{
				Name: RuleVendorDiversity + ":" + string(v), Members: members,
				Lo: p.VendorMin, Hi: n,
			})
		}
	}

	// S4 branding urgency.
	if len(critical) > 0 {
		m.Groups = append(m.Groups, GroupBound{
			Name: RuleCriticalBranding, Members: critical,
			Lo: min(p.CriticalBrandingMin, len(critical)), Hi: n,
		})
	}

	// S5 mileage band: half the roster inside the band when the pool allows.
	if len(band) > 0 {
		m.Groups = append(m.Groups, GroupBound{
			Name: RuleMileageBand, Members: band,
			Lo: min(p.TargetSize/2, len(band)), Hi: n,
		})
	}

	// S6 bay preference.
	if len(homeBay) > 0 {
		m.Groups = append(m.Groups, GroupBound{
			Name: RuleHomeBay, Members: homeBay,
			Lo: min(p.HomeBayMin, len(homeBay)), Hi: n,
		})
	}
}

// computeBayBonus fills the y[c,b] coefficients. Accessibility decays with
// position order; cross-depot placement halves the bonus.
func (m *Model) computeBayBonus() {
	maxPos := 0
	for _, b := range m.Bays {
		if b.PositionOrder > maxPos {
			maxPos = b.PositionOrder
		}
	}
	if maxPos == 0 {
		maxPos = 1
	}

	m.BayBonus = make([][]int64, len(m.Candidates))
	for i, c := range m.Candidates {
		row := make([]int64, len(m.Bays))
		for j, b := range m.Bays {
			accessibility := float64(maxPos-b.PositionOrder+1) / float64(maxPos)
			compatibility := 0.5
			if b.Depot == c.Train.HomeDepot {
				compatibility = 1.0
			}
			row[j] = int64(math.Round(10 * accessibility * compatibility))
		}
		m.BayBonus[i] = row
	}
}

// Free returns the candidate indices not pinned to zero.
func (m *Model) Free() []int {
	out := make([]int, 0, len(m.Candidates))
	for i, c := range m.Candidates {
		if !c.FixedZero {
			out = append(out, i)
		}
	}
	return out
}
