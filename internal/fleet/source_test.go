package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapAt = time.Date(2025, 9, 15, 21, 0, 0, 0, time.UTC)

// mapSource is the minimal DataSource double for snapshot assembly tests.
type mapSource struct {
	trains   []Trainset
	certs    map[int]map[CertDomain]FitnessCertificate
	jobs     map[int][]JobCard
	branding map[int]*BrandingCommitment
	mileage  map[int]MileageRecord
	cleaning map[int][]CleaningSlot
	bays     []StablingBay

	failOn string
}

func (s *mapSource) fail(step string) error {
	if s.failOn == step {
		return errors.New("backing store down")
	}
	return nil
}

func (s *mapSource) Trainsets(ctx context.Context) ([]Trainset, error) {
	return s.trains, s.fail("trainsets")
}

func (s *mapSource) FitnessCertificates(ctx context.Context, ids []int) (map[int]map[CertDomain]FitnessCertificate, error) {
	return s.certs, s.fail("certs")
}

func (s *mapSource) JobCards(ctx context.Context, ids []int) (map[int][]JobCard, error) {
	return s.jobs, s.fail("jobs")
}

func (s *mapSource) BrandingCommitments(ctx context.Context, ids []int) (map[int]*BrandingCommitment, error) {
	return s.branding, s.fail("branding")
}

func (s *mapSource) MileageRecords(ctx context.Context, ids []int) (map[int]MileageRecord, error) {
	return s.mileage, s.fail("mileage")
}

func (s *mapSource) CleaningSlots(ctx context.Context, ids []int) (map[int][]CleaningSlot, error) {
	return s.cleaning, s.fail("cleaning")
}

func (s *mapSource) Bays(ctx context.Context) ([]StablingBay, error) {
	return s.bays, s.fail("bays")
}

func TestLoadSnapshot_OrdersByID(t *testing.T) {
	src := &mapSource{
		trains: []Trainset{
			{ID: 3, Number: "R1003"},
			{ID: 1, Number: "R1001"},
			{ID: 2, Number: "R1002"},
		},
		bays: []StablingBay{{ID: 9, Depot: DepotA}, {ID: 4, Depot: DepotA}},
	}

	snap, err := LoadSnapshot(context.Background(), src, snapAt)
	require.NoError(t, err)

	require.Len(t, snap.Trains, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{snap.Trains[0].ID, snap.Trains[1].ID, snap.Trains[2].ID})
	assert.Equal(t, []int{4, 9}, []int{snap.Bays[0].ID, snap.Bays[1].ID})
	assert.Equal(t, snapAt, snap.TakenAt)
	// Missing cert maps are materialised so lookups never panic.
	assert.NotNil(t, snap.Trains[0].Certificates)
}

func TestLoadSnapshot_HomeBayDerivation(t *testing.T) {
	src := &mapSource{
		trains: []Trainset{
			{ID: 1, HomeDepot: DepotA}, // own recorded bay, free
			{ID: 2, HomeDepot: DepotA}, // own recorded bay, blocked
			{ID: 3, HomeDepot: DepotA}, // no recorded bay, depot A has a free bay
			{ID: 4, HomeDepot: DepotB}, // no recorded bay, depot B fully occupied
		},
		bays: []StablingBay{
			{ID: 1, Depot: DepotA, CurrentTrainset: 1},
			{ID: 2, Depot: DepotA, CurrentTrainset: 2, Blocked: true},
			{ID: 3, Depot: DepotA},
			{ID: 4, Depot: DepotB, Occupied: true},
		},
	}

	snap, err := LoadSnapshot(context.Background(), src, snapAt)
	require.NoError(t, err)

	assert.True(t, snap.Trains[0].HomeBayAvailable)
	assert.False(t, snap.Trains[1].HomeBayAvailable)
	assert.True(t, snap.Trains[2].HomeBayAvailable)
	assert.False(t, snap.Trains[3].HomeBayAvailable)
}

func TestLoadSnapshot_JoinsRecords(t *testing.T) {
	day := 24 * time.Hour
	src := &mapSource{
		trains: []Trainset{{ID: 7, HomeDepot: DepotA}},
		certs: map[int]map[CertDomain]FitnessCertificate{
			7: {DomainRollingStock: {Domain: DomainRollingStock, Status: CertValid, ValidTo: snapAt.Add(40 * day)}},
		},
		jobs:     map[int][]JobCard{7: {{TrainsetID: 7, Priority: JobHigh, Status: JobOpen}}},
		branding: map[int]*BrandingCommitment{7: {TrainsetID: 7, Priority: BrandingCritical}},
		mileage:  map[int]MileageRecord{7: {TrainsetID: 7, TotalKM: 91_000}},
		cleaning: map[int][]CleaningSlot{7: {{TrainsetID: 7, Status: CleaningCompleted}}},
		bays:     []StablingBay{{ID: 1, Depot: DepotA}},
	}

	snap, err := LoadSnapshot(context.Background(), src, snapAt)
	require.NoError(t, err)

	td := snap.Trains[0]
	assert.Equal(t, 1, td.ValidCertCount(snapAt))
	assert.Len(t, td.Jobs, 1)
	require.NotNil(t, td.Branding)
	assert.Equal(t, 91_000, td.Mileage.TotalKM)
	assert.Len(t, td.Cleaning, 1)
}

func TestLoadSnapshot_PropagatesErrors(t *testing.T) {
	for _, step := range []string{"trainsets", "certs", "jobs", "branding", "mileage", "cleaning", "bays"} {
		t.Run(step, func(t *testing.T) {
			src := &mapSource{trains: []Trainset{{ID: 1}}, failOn: step}
			_, err := LoadSnapshot(context.Background(), src, snapAt)
			assert.Error(t, err)
		})
	}
}

func TestAvailableBays(t *testing.T) {
	snap := &Snapshot{Bays: []StablingBay{
		{ID: 1},
		{ID: 2, Blocked: true},
		{ID: 3, Occupied: true},
		{ID: 4},
	}}
	bays := snap.AvailableBays()
	require.Len(t, bays, 2)
	assert.Equal(t, 1, bays[0].ID)
	assert.Equal(t, 4, bays[1].ID)
}
