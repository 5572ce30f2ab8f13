// Package score implements the per-trainset priority score: six signal
// families fused into a 0-100 total with a per-dimension breakdown. Scoring
// is pure and deterministic — malformed source data lowers a dimension to
// its conservative mid value instead of aborting.
package score

import (
	"math"
	"time"

	"github.com/metrorun/inductor/internal/fleet"
)

// Point caps per dimension. They sum to 100.
const (
	FitnessCap  = 25.0
	JobCardCap  = 20.0
	BrandingCap = 15.0
	MileageCap  = 20.0
	WearCap     = 5.0
	CleaningCap = 10.0
	StablingCap = 5.0
)

// Conservative mid values used when a dimension's dates cannot be trusted.
const (
	fitnessFallback  = 5.0
	brandingFallback = 5.0
	cleaningFallback = 1.0
)

// Dimension is one scored signal family. Fallback marks a value degraded by
// malformed source data.
type Dimension struct {
	Points   float64 `json:"points"`
	Fallback bool    `json:"fallback,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func value(points float64) Dimension { return Dimension{Points: points} }

func fallback(points float64, reason string) Dimension {
	return Dimension{Points: points, Fallback: true, Reason: reason}
}

// Breakdown carries the per-dimension contributions behind a total.
type Breakdown struct {
	Fitness  Dimension `json:"fitness"`
	JobCards Dimension `json:"job_cards"`
	Branding Dimension `json:"branding"`
	Mileage  Dimension `json:"mileage"`
	Wear     Dimension `json:"component_wear"`
	Cleaning Dimension `json:"cleaning"`
	Stabling Dimension `json:"stabling"`
}

// Score is the fused priority for one trainset.
type Score struct {
	TrainsetID int       `json:"trainset_id"`
	Total      float64   `json:"total"`
	Breakdown  Breakdown `json:"breakdown"`

	// Carried for tie-breaking and downstream reason derivation.
	TotalKM int `json:"total_km"`
}

// Rounded returns the display total, rounded to one decimal.
func (s Score) Rounded() float64 {
	return math.Round(s.Total*10) / 10
}

// ObjectiveCents returns the integer objective coefficient round(total*100),
// preserving score ordering for the solver.
func (s Score) ObjectiveCents() int64 {
	return int64(math.Round(s.Total * 100))
}

// Less orders scores for roster listings: total descending, then fitness
// sub-score descending, then lower total kilometres, then lower trainset id.
func Less(a, b Score) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.Breakdown.Fitness.Points != b.Breakdown.Fitness.Points {
		return a.Breakdown.Fitness.Points > b.Breakdown.Fitness.Points
	}
	if a.TotalKM != b.TotalKM {
		return a.TotalKM < b.TotalKM
	}
	return a.TrainsetID < b.TrainsetID
}

// Compute scores one trainset against the snapshot instant.
func Compute(t *fleet.TrainsetData, at time.Time) Score {
	b := Breakdown{
		Fitness:  fitnessDim(t, at),
		JobCards: jobCardDim(t),
		Branding: brandingDim(t, at),
		Mileage:  mileageDim(t),
		Wear:     wearDim(t),
		Cleaning: cleaningDim(t, at),
		Stabling: stablingDim(t),
	}
	total := b.Fitness.Points + b.JobCards.Points + b.Branding.Points +
		b.Mileage.Points + b.Wear.Points + b.Cleaning.Points + b.Stabling.Points
	return Score{
		TrainsetID: t.ID,
		Total:      math.Min(100.0, total),
		Breakdown:  b,
		TotalKM:    t.Mileage.TotalKM,
	}
}

// fitnessDim awards up to 25 points across the three certificate domains by
// remaining validity headroom.
func fitnessDim(t *fleet.TrainsetData, at time.Time) Dimension {
	pts := 0.0
	for _, domain := range fleet.CertDomains {
		cert, ok := t.Certificates[domain]
		if !ok || cert.Status == fleet.CertUnknown || cert.ValidTo.IsZero() {
			return fallback(fitnessFallback, "unreadable certificate window")
		}
		if !cert.IsValid(at) {
			continue
		}
		switch headroom := cert.HeadroomDays(at); {
		case headroom > 60:
			pts += 8.33
		case headroom >= 30:
			pts += 6.67
		default:
			pts += 4.17
		}
	}
	return value(math.Min(FitnessCap, pts))
}

// jobCardDim starts at 20 and subtracts for open or in-progress work orders,
// floored at zero.
func jobCardDim(t *fleet.TrainsetData) Dimension {
	pts := JobCardCap
	for _, j := range t.Jobs {
		switch {
		case j.Status == fleet.JobOpen && j.Priority == fleet.JobEmergency:
			pts -= 10
		case j.Status == fleet.JobOpen && j.Priority == fleet.JobHigh:
			pts -= 5
		case j.Status == fleet.JobInProgress:
			pts -= 2
		}
	}
	return value(math.Max(0, pts))
}

// brandingDim rewards trains whose active critical campaigns are behind on
// contractual exposure.
func brandingDim(t *fleet.TrainsetData, at time.Time) Dimension {
	b := t.Branding
	if b == nil {
		return value(3)
	}
	if (b.CampaignStart.IsZero()) != (b.CampaignEnd.IsZero()) {
		return fallback(brandingFallback, "unreadable campaign window")
	}
	if !b.IsActive(at) {
		return value(3)
	}
	if b.Priority != fleet.BrandingCritical {
		return value(5)
	}
	switch ratio := b.ExposureRatio(); {
	case ratio < 0.5:
		return value(BrandingCap)
	case ratio < 0.8:
		return value(10)
	default:
		return value(5)
	}
}

// mileageDim prefers trains inside the balanced wear band.
func mileageDim(t *fleet.TrainsetData) Dimension {
	km := t.Mileage.TotalKM
	switch {
	case km >= 50_000 && km <= 150_000:
		return value(MileageCap)
	case (km >= 30_000 && km < 50_000) || (km > 150_000 && km <= 200_000):
		return value(15)
	default:
		return value(10)
	}
}

func wearDim(t *fleet.TrainsetData) Dimension {
	switch bogie := t.Mileage.BogieCondition; {
	case bogie >= 80:
		return value(WearCap)
	case bogie >= 60:
		return value(3)
	default:
		return value(1)
	}
}

// cleaningDim sums recency credit over completed slots, capped at 10; a
// train with no recent cleaning gets the minimum 1.
func cleaningDim(t *fleet.TrainsetData, at time.Time) Dimension {
	pts := 0.0
	sawCompleted := false
	for _, slot := range t.Cleaning {
		if slot.Status != fleet.CleaningCompleted {
			continue
		}
		if slot.SlotTime.IsZero() {
			return fallback(cleaningFallback, "unreadable cleaning slot time")
		}
		sawCompleted = true
		days := int(at.Sub(slot.SlotTime).Hours() / 24)
		switch {
		case days >= 0 && days <= 7:
			pts += 5
		case days >= 8 && days <= 14:
			pts += 3
		}
	}
	if !sawCompleted || pts == 0 {
		return value(1)
	}
	return value(math.Min(CleaningCap, pts))
}

func stablingDim(t *fleet.TrainsetData) Dimension {
	if t.HomeBayAvailable {
		return value(StablingCap)
	}
	return value(2)
}

// ComputeAll scores every train in the snapshot, keyed by trainset id.
func ComputeAll(snap *fleet.Snapshot) map[int]Score {
	out := make(map[int]Score, len(snap.Trains))
	for _, t := range snap.Trains {
		out[t.ID] = Compute(t, snap.TakenAt)
	}
	return out
}
