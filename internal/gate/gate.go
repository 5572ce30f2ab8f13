// Package gate implements the tiered eligibility funnel that decides which
// trainsets enter the optimisation pool. Strict rules are progressively
// relaxed until a target-size roster is reachable; a train in maintenance is
// never admitted.
package gate

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/metrorun/inductor/internal/fleet"
)

// Tier is the admission level at which a trainset entered the pool.
type Tier string

const (
	TierStrict   Tier = "S"
	TierRelaxed  Tier = "R"
	TierFallback Tier = "F"
)

// Admission pairs a pool member with the tier it was admitted at.
type Admission struct {
	Train *fleet.TrainsetData
	Tier  Tier
}

// Result is the gated pool plus per-tier counts.
type Result struct {
	Pool   []Admission
	TierOf map[int]Tier

	StrictCount   int
	RelaxedCount  int
	FallbackCount int
}

// InsufficientFleetError reports a pool that stayed below the target size
// even after full relaxation.
type InsufficientFleetError struct {
	Need int
	Have int
}

func (e *InsufficientFleetError) Error() string {
	return fmt.Sprintf("insufficient fleet: need %d, have %d", e.Need, e.Have)
}

// strictEligible: at least 2 of 3 certificates valid, no open emergency job,
// not in maintenance, records fully parseable.
func strictEligible(t *fleet.TrainsetData, snap *fleet.Snapshot) bool {
	return !t.HasParseFailure() &&
		t.Status != fleet.StatusMaintenance &&
		t.ValidCertCount(snap.TakenAt) >= 2 &&
		!t.HasOpenEmergencyJob()
}

// relaxedEligible: at least 1 valid certificate, no open emergency job, not
// in maintenance, records fully parseable.
func relaxedEligible(t *fleet.TrainsetData, snap *fleet.Snapshot) bool {
	return !t.HasParseFailure() &&
		t.Status != fleet.StatusMaintenance &&
		t.ValidCertCount(snap.TakenAt) >= 1 &&
		!t.HasOpenEmergencyJob()
}

// fallbackEligible: anything not in maintenance, fitness and job cards
// ignored.
func fallbackEligible(t *fleet.TrainsetData) bool {
	return t.Status != fleet.StatusMaintenance
}

// Admit runs the funnel. Tier S is always taken; Tiers R and F extend the
// pool only while it is short of target. With relaxation disabled Tier F is
// never entered. The returned pool preserves the snapshot's train order.
func Admit(snap *fleet.Snapshot, target int, enableRelaxation bool) (*Result, error) {
	res := &Result{TierOf: make(map[int]Tier, len(snap.Trains))}

	admit := func(t *fleet.TrainsetData, tier Tier) {
		res.Pool = append(res.Pool, Admission{Train: t, Tier: tier})
		res.TierOf[t.ID] = tier
		switch tier {
		case TierStrict:
			res.StrictCount++
		case TierRelaxed:
			res.RelaxedCount++
		case TierFallback:
			res.FallbackCount++
		}
	}

	for _, t := range snap.Trains {
		if strictEligible(t, snap) {
			admit(t, TierStrict)
		}
	}

	if len(res.Pool) < target {
		log.Debug().
			Int("strict", res.StrictCount).
			Int("target", target).
			Msg("strict pool short of target, relaxing fitness requirement")
		for _, t := range snap.Trains {
			if _, seen := res.TierOf[t.ID]; seen {
				continue
			}
			if relaxedEligible(t, snap) {
				admit(t, TierRelaxed)
			}
		}
	}

	if len(res.Pool) < target && enableRelaxation {
		log.Debug().
			Int("pool", len(res.Pool)).
			Int("target", target).
			Msg("relaxed pool short of target, admitting fallback tier")
		for _, t := range snap.Trains {
			if _, seen := res.TierOf[t.ID]; seen {
				continue
			}
			if fallbackEligible(t) {
				admit(t, TierFallback)
			}
		}
	}

	if len(res.Pool) < target {
		return nil, &InsufficientFleetError{Need: target, Have: len(res.Pool)}
	}
	return res, nil
}

// UsedRelaxation reports whether any pool member needed the relaxed or
// fallback tier.
func (r *Result) UsedRelaxation() bool {
	return r.RelaxedCount > 0 || r.FallbackCount > 0
}
