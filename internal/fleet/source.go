package fleet

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DataSource provides the fleet snapshot consumed by an optimisation call.
// Implementations may be backed by Postgres, a fixture generator, or a test
// double; the core treats all returned data as immutable.
type DataSource interface {
	Trainsets(ctx context.Context) ([]Trainset, error)
	FitnessCertificates(ctx context.Context, ids []int) (map[int]map[CertDomain]FitnessCertificate, error)
	JobCards(ctx context.Context, ids []int) (map[int][]JobCard, error)
	BrandingCommitments(ctx context.Context, ids []int) (map[int]*BrandingCommitment, error)
	MileageRecords(ctx context.Context, ids []int) (map[int]MileageRecord, error)
	CleaningSlots(ctx context.Context, ids []int) (map[int][]CleaningSlot, error)
	Bays(ctx context.Context) ([]StablingBay, error)
}

// LoadSnapshot assembles the joined, normalised snapshot for one invocation.
// Trains and bays come back in id order so downstream processing is stable
// under input permutation.
func LoadSnapshot(ctx context.Context, src DataSource, at time.Time) (*Snapshot, error) {
	trains, err := src.Trainsets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trainsets: %w", err)
	}
	sort.Slice(trains, func(i, j int) bool { return trains[i].ID < trains[j].ID })

	ids := make([]int, len(trains))
	for i, t := range trains {
		ids[i] = t.ID
	}

	certs, err := src.FitnessCertificates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load fitness certificates: %w", err)
	}
	jobs, err := src.JobCards(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load job cards: %w", err)
	}
	branding, err := src.BrandingCommitments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load branding commitments: %w", err)
	}
	mileage, err := src.MileageRecords(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load mileage records: %w", err)
	}
	cleaning, err := src.CleaningSlots(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cleaning slots: %w", err)
	}
	bays, err := src.Bays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stabling bays: %w", err)
	}
	sort.Slice(bays, func(i, j int) bool { return bays[i].ID < bays[j].ID })

	snap := &Snapshot{TakenAt: at, Bays: bays}

	freeByDepot := map[Depot]bool{}
	bayOfTrain := map[int]StablingBay{}
	for _, b := range bays {
		if b.Available() {
			freeByDepot[b.Depot] = true
		}
		if b.CurrentTrainset != 0 {
			bayOfTrain[b.CurrentTrainset] = b
		}
	}

	for _, t := range trains {
		td := &TrainsetData{
			Trainset:     t,
			Certificates: certs[t.ID],
			Jobs:         jobs[t.ID],
			Branding:     branding[t.ID],
			Cleaning:     cleaning[t.ID],
		}
		if td.Certificates == nil {
			td.Certificates = map[CertDomain]FitnessCertificate{}
		}
		if m, ok := mileage[t.ID]; ok {
			td.Mileage = m
		}
		// CurrentTrainset records a bay as a train's home position, not
		// physical presence: the train may be out on the line while its
		// bay sits free, or the bay may be blocked for maintenance. A
		// train with a recorded position is judged by that bay alone; the
		// rest fall back to any free bay in their home depot.
		if home, ok := bayOfTrain[t.ID]; ok {
			td.HomeBayAvailable = home.Available()
		} else {
			td.HomeBayAvailable = freeByDepot[t.HomeDepot]
		}
		snap.Trains = append(snap.Trains, td)
	}

	return snap, nil
}
