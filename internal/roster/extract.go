package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/gate"
	"github.com/metrorun/inductor/internal/score"
)

// Exclusion reason sentences. These are contract strings for downstream
// consumers; do not reword without versioning the API.
const (
	ReasonUnderMaintenance = "under maintenance — excluded from scheduling"
	ReasonInvalidFitness   = "invalid fitness certificates"
	ReasonEmergencyJob     = "emergency work order open"
	ReasonNotSelected      = "not selected by optimisation"
)

// Selection reason sentences, concatenated in priority order.
const (
	ReasonUrgentBranding  = "urgent critical branding"
	ReasonFitnessHeadroom = "long-term fitness headroom"
	ReasonMileageBalance  = "needs mileage balancing"
	ReasonRecentlyCleaned = "recently cleaned"
	ReasonMultiCriteria   = "optimal multi-criteria fit"
)

// ViolationSolverFallback is recorded whenever the greedy projection had to
// replace the solver's answer.
const ViolationSolverFallback = "solver_fallback_used"

// trainSummary is the shared identity block of a roster entry.
type trainSummary struct {
	TrainsetID       int          `json:"trainset_id"`
	Number           string       `json:"number"`
	Status           fleet.Status `json:"status"`
	Vendor           fleet.Vendor `json:"vendor"`
	YearCommissioned int          `json:"year_commissioned"`
	HomeDepot        fleet.Depot  `json:"home_depot"`
	TotalKM          int          `json:"total_km"`
}

// SelectedEntry is one roster member with its bay and reasoning.
type SelectedEntry struct {
	trainSummary
	BayID     int             `json:"assigned_bay_id"`
	BayDepot  fleet.Depot     `json:"bay_depot"`
	Score     float64         `json:"scheduling_score"`
	Breakdown score.Breakdown `json:"score_breakdown"`
	Reasons   []string        `json:"selection_reasons"`
	Tier      gate.Tier       `json:"admission_tier"`
}

// RejectedEntry is one trainset left out of the roster, with the first
// matching exclusion reason.
type RejectedEntry struct {
	trainSummary
	Score           float64 `json:"scheduling_score"`
	ExclusionReason string  `json:"exclusion_reason"`
}

// Roster is the extracted operating plan for one day.
type Roster struct {
	Status         Status          `json:"status"`
	Selected       []SelectedEntry `json:"selected"`
	Rejected       []RejectedEntry `json:"rejected"`
	ObjectiveCents int64           `json:"objective_cents"`
	Violations     []string        `json:"violations"`

	// UsedRelaxedTiers reports a roster that needed trains admitted below
	// the strict tier.
	UsedRelaxedTiers bool `json:"used_relaxed_tiers"`
}

// Extract partitions the full fleet into selected and rejected entries from
// a solver valuation. Both lists come back sorted by score descending with
// the standard tie-break.
func Extract(snap *fleet.Snapshot, m *Model, sol *Solution, scores map[int]score.Score, tierOf map[int]gate.Tier) *Roster {
	r := &Roster{Status: sol.Status, ObjectiveCents: sol.ObjectiveCents}

	selectedTrains := map[int]bool{}
	for _, c := range sol.Selected {
		cand := m.Candidates[c]
		sc := scores[cand.Train.ID]
		bay := m.Bays[sol.BayIdx[c]]
		tier := tierOf[cand.Train.ID]
		if tier != gate.TierStrict {
			r.UsedRelaxedTiers = true
		}
		r.Selected = append(r.Selected, SelectedEntry{
			trainSummary: summarize(cand.Train),
			BayID:        bay.ID,
			BayDepot:     bay.Depot,
			Score:        sc.Rounded(),
			Breakdown:    sc.Breakdown,
			Reasons:      selectionReasons(cand.Train, sc, snap.TakenAt),
			Tier:         tier,
		})
		selectedTrains[cand.Train.ID] = true
	}

	for _, t := range snap.Trains {
		if selectedTrains[t.ID] {
			continue
		}
		sc := scores[t.ID]
		r.Rejected = append(r.Rejected, RejectedEntry{
			trainSummary:    summarize(t),
			Score:           sc.Rounded(),
			ExclusionReason: exclusionReason(t, sc, snap.TakenAt),
		})
	}

	sortSelected(r.Selected, scores)
	sortRejected(r.Rejected, scores)
	return r
}

func summarize(t *fleet.TrainsetData) trainSummary {
	return trainSummary{
		TrainsetID:       t.ID,
		Number:           t.Number,
		Status:           t.Status,
		Vendor:           t.Vendor,
		YearCommissioned: t.YearCommissioned,
		HomeDepot:        t.HomeDepot,
		TotalKM:          t.Mileage.TotalKM,
	}
}

// selectionReasons concatenates the applicable sentences in priority order;
// a train matching none gets the generic multi-criteria sentence.
func selectionReasons(t *fleet.TrainsetData, sc score.Score, at time.Time) []string {
	var reasons []string
	if t.ActiveCriticalBranding(at) && t.Branding.ExposureRatio() < 0.5 {
		reasons = append(reasons, ReasonUrgentBranding)
	}
	if minHeadroom, ok := minCertHeadroom(t, at); ok && minHeadroom >= 60 {
		reasons = append(reasons, ReasonFitnessHeadroom)
	}
	if sc.Breakdown.Mileage.Points >= 18 {
		reasons = append(reasons, ReasonMileageBalance)
	}
	if sc.Breakdown.Cleaning.Points >= score.CleaningCap {
		reasons = append(reasons, ReasonRecentlyCleaned)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, ReasonMultiCriteria)
	}
	return reasons
}

// minCertHeadroom returns the smallest expiry headroom across the three
// domains; ok is false unless all three certificates are valid.
func minCertHeadroom(t *fleet.TrainsetData, at time.Time) (int, bool) {
	minDays := 0
	for i, domain := range fleet.CertDomains {
		cert, ok := t.Certificates[domain]
		if !ok || !cert.IsValid(at) {
			return 0, false
		}
		days := cert.HeadroomDays(at)
		if i == 0 || days < minDays {
			minDays = days
		}
	}
	return minDays, true
}

// exclusionReason picks the first matching clause for a rejected trainset.
func exclusionReason(t *fleet.TrainsetData, sc score.Score, at time.Time) string {
	switch {
	case t.Status == fleet.StatusMaintenance:
		return ReasonUnderMaintenance
	case t.ValidCertCount(at) == 0:
		return ReasonInvalidFitness
	case t.HasOpenEmergencyJob():
		return ReasonEmergencyJob
	case sc.Total < 30:
		return fmt.Sprintf("score below threshold (%.1f)", sc.Rounded())
	default:
		return ReasonNotSelected
	}
}

func sortSelected(entries []SelectedEntry, scores map[int]score.Score) {
	sort.SliceStable(entries, func(i, j int) bool {
		return score.Less(scores[entries[i].TrainsetID], scores[entries[j].TrainsetID])
	})
}

func sortRejected(entries []RejectedEntry, scores map[int]score.Score) {
	sort.SliceStable(entries, func(i, j int) bool {
		return score.Less(scores[entries[i].TrainsetID], scores[entries[j].TrainsetID])
	})
}
