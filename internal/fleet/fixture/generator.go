// Package fixture provides a deterministic in-memory fleet source for demos
// and tests. The same seed and anchor time always produce the same fleet.
package fixture

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/metrorun/inductor/internal/fleet"
)

// Source implements fleet.DataSource over generated data.
type Source struct {
	trains   []fleet.Trainset
	certs    map[int]map[fleet.CertDomain]fleet.FitnessCertificate
	jobs     map[int][]fleet.JobCard
	branding map[int]*fleet.BrandingCommitment
	mileage  map[int]fleet.MileageRecord
	cleaning map[int][]fleet.CleaningSlot
	bays     []fleet.StablingBay
}

var advertisers = []string{
	"Coca-Cola", "Pepsi", "Amazon", "Flipkart", "Reliance", "Tata",
}

// Generate builds a synthetic fleet anchored at now. Size is the number of
// trainsets; bays are generated with a margin over the fleet so a full
// roster always has parking.
func Generate(seed int64, size int, now time.Time) *Source {
	rng := rand.New(rand.NewSource(seed))
	s := &Source{
		certs:    map[int]map[fleet.CertDomain]fleet.FitnessCertificate{},
		jobs:     map[int][]fleet.JobCard{},
		branding: map[int]*fleet.BrandingCommitment{},
		mileage:  map[int]fleet.MileageRecord{},
		cleaning: map[int][]fleet.CleaningSlot{},
	}

	day := 24 * time.Hour
	for i := 1; i <= size; i++ {
		depot := fleet.DepotA
		if i > size/2 {
			depot = fleet.DepotB
		}
		status := fleet.StatusInService
		switch {
		case i%12 == 0:
			status = fleet.StatusMaintenance
		case i%5 == 0:
			status = fleet.StatusStandby
		}

		s.trains = append(s.trains, fleet.Trainset{
			ID:               i,
			Number:           fmt.Sprintf("R%d", 1000+i),
			Vendor:           fleet.Vendors[(i-1)%len(fleet.Vendors)],
			YearCommissioned: 2017 + i%8,
			HomeDepot:        depot,
			Status:           status,
		})

		s.certs[i] = map[fleet.CertDomain]fleet.FitnessCertificate{}
		for _, domain := range fleet.CertDomains {
			headroom := rng.Intn(365) - 20 // a few expired certs per fleet
			cert := fleet.FitnessCertificate{
				Domain:    domain,
				ValidFrom: now.Add(-time.Duration(rng.Intn(300)) * day),
				ValidTo:   now.Add(time.Duration(headroom) * day),
				Status:    fleet.CertValid,
			}
			if headroom < 0 {
				cert.Status = fleet.CertExpired
			}
			s.certs[i][domain] = cert
		}

		for j := 0; j < rng.Intn(3); j++ {
			priority := fleet.JobLow
			switch rng.Intn(10) {
			case 0:
				priority = fleet.JobEmergency
			case 1, 2:
				priority = fleet.JobHigh
			case 3, 4, 5:
				priority = fleet.JobMedium
			}
			status := fleet.JobOpen
			if rng.Intn(10) > 6 {
				status = fleet.JobInProgress
			}
			s.jobs[i] = append(s.jobs[i], fleet.JobCard{
				TrainsetID:         i,
				Category:           "Preventive Maintenance",
				Priority:           priority,
				Status:             status,
				CreatedOn:          now.Add(-time.Duration(rng.Intn(30)) * day),
				ExpectedCompletion: now.Add(time.Duration(rng.Intn(14)) * day),
			})
		}

		if rng.Intn(10) < 6 {
			start := now.Add(-time.Duration(rng.Intn(90)) * day)
			priority := fleet.BrandingNormal
			if rng.Intn(5) == 0 {
				priority = fleet.BrandingCritical
			}
			target := float64(200 + rng.Intn(300))
			s.branding[i] = &fleet.BrandingCommitment{
				TrainsetID:    i,
				Advertiser:    advertisers[rng.Intn(len(advertisers))],
				Priority:      priority,
				TargetHours:   target,
				AchievedHours: target * rng.Float64() * 1.2,
				CampaignStart: start,
				CampaignEnd:   start.Add(time.Duration(30+rng.Intn(90)) * day),
				HasPenalty:    priority == fleet.BrandingCritical,
			}
		}

		s.mileage[i] = fleet.MileageRecord{
			TrainsetID:     i,
			TotalKM:        30_000 + rng.Intn(150_000),
			KMSincePOH:     rng.Intn(40_000),
			KMSinceIOH:     rng.Intn(20_000),
			KMSinceTrip:    rng.Intn(3_000),
			BogieCondition: 50 + rng.Intn(50),
			BrakeWear:      rng.Intn(100),
			HVACHours:      rng.Intn(8_000),
			UpdatedAt:      now.Add(-time.Duration(rng.Intn(5)) * day),
		}

		for c := 0; c < 1+rng.Intn(2); c++ {
			s.cleaning[i] = append(s.cleaning[i], fleet.CleaningSlot{
				TrainsetID: i,
				Kind:       fleet.CleaningDeep,
				Status:     fleet.CleaningCompleted,
				SlotTime:   now.Add(-time.Duration(1+rng.Intn(20)) * day),
				Bay:        1 + rng.Intn(6),
				Staff:      fmt.Sprintf("Crew %d", 1+rng.Intn(5)),
			})
		}
	}

	// Bays: 25% margin over the fleet, split across depots, a few blocked or
	// already occupied.
	bayCount := size + size/4
	for b := 1; b <= bayCount; b++ {
		depot := fleet.DepotA
		if b > bayCount/2 {
			depot = fleet.DepotB
		}
		bay := fleet.StablingBay{
			ID:            b,
			Depot:         depot,
			Line:          fmt.Sprintf("Line-%d", 1+(b-1)%4),
			PositionOrder: 1 + (b-1)%(bayCount/2),
		}
		switch rng.Intn(12) {
		case 0:
			bay.Blocked = true
		case 1:
			bay.Occupied = true
			bay.CurrentTrainset = 1 + rng.Intn(size)
		}
		s.bays = append(s.bays, bay)
	}

	return s
}

func (s *Source) Trainsets(ctx context.Context) ([]fleet.Trainset, error) {
	return s.trains, nil
}

func (s *Source) FitnessCertificates(ctx context.Context, ids []int) (map[int]map[fleet.CertDomain]fleet.FitnessCertificate, error) {
	return s.certs, nil
}

func (s *Source) JobCards(ctx context.Context, ids []int) (map[int][]fleet.JobCard, error) {
	return s.jobs, nil
}

func (s *Source) BrandingCommitments(ctx context.Context, ids []int) (map[int]*fleet.BrandingCommitment, error) {
	return s.branding, nil
}

func (s *Source) MileageRecords(ctx context.Context, ids []int) (map[int]fleet.MileageRecord, error) {
	return s.mileage, nil
}

func (s *Source) CleaningSlots(ctx context.Context, ids []int) (map[int][]fleet.CleaningSlot, error) {
	return s.cleaning, nil
}

func (s *Source) Bays(ctx context.Context) ([]fleet.StablingBay, error) {
	return s.bays, nil
}
