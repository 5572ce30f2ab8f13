package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrorun/inductor/internal/config"
	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/induction"
	"github.com/metrorun/inductor/internal/roster"
	"github.com/metrorun/inductor/internal/solver"
)

var testAt = time.Date(2025, 9, 15, 21, 0, 0, 0, time.UTC)

// fleetStub is a deterministic in-memory fleet.DataSource: twelve fully fit
// in-service trainsets split across both depots, fourteen open bays.
type fleetStub struct {
	trains   []fleet.Trainset
	certs    map[int]map[fleet.CertDomain]fleet.FitnessCertificate
	mileage  map[int]fleet.MileageRecord
	cleaning map[int][]fleet.CleaningSlot
	bays     []fleet.StablingBay
}

func newFleetStub() *fleetStub {
	s := &fleetStub{
		certs:    map[int]map[fleet.CertDomain]fleet.FitnessCertificate{},
		mileage:  map[int]fleet.MileageRecord{},
		cleaning: map[int][]fleet.CleaningSlot{},
	}
	day := 24 * time.Hour
	for i := 1; i <= 12; i++ {
		depot := fleet.DepotA
		if i > 6 {
			depot = fleet.DepotB
		}
		s.trains = append(s.trains, fleet.Trainset{
			ID:               i,
			Number:           fmt.Sprintf("R%d", 1000+i),
			Vendor:           fleet.Vendors[(i-1)%len(fleet.Vendors)],
			YearCommissioned: 2021 + i%4,
			HomeDepot:        depot,
			Status:           fleet.StatusInService,
		})
		s.certs[i] = map[fleet.CertDomain]fleet.FitnessCertificate{}
		for _, domain := range fleet.CertDomains {
			s.certs[i][domain] = fleet.FitnessCertificate{
				Domain:    domain,
				ValidFrom: testAt.Add(-30 * day),
				ValidTo:   testAt.Add(100 * day),
				Status:    fleet.CertValid,
			}
		}
		s.mileage[i] = fleet.MileageRecord{TrainsetID: i, TotalKM: 80_000, BogieCondition: 85, UpdatedAt: testAt.Add(-day)}
		s.cleaning[i] = []fleet.CleaningSlot{{
			TrainsetID: i, Kind: fleet.CleaningDeep, Status: fleet.CleaningCompleted, SlotTime: testAt.Add(-3 * day),
		}}
	}
	for b := 1; b <= 14; b++ {
		depot := fleet.DepotA
		if b > 7 {
			depot = fleet.DepotB
		}
		s.bays = append(s.bays, fleet.StablingBay{ID: b, Depot: depot, PositionOrder: 1 + (b-1)%4})
	}
	return s
}

func (s *fleetStub) Trainsets(ctx context.Context) ([]fleet.Trainset, error) { return s.trains, nil }
func (s *fleetStub) FitnessCertificates(ctx context.Context, ids []int) (map[int]map[fleet.CertDomain]fleet.FitnessCertificate, error) {
	return s.certs, nil
}
func (s *fleetStub) JobCards(ctx context.Context, ids []int) (map[int][]fleet.JobCard, error) {
	return map[int][]fleet.JobCard{}, nil
}
func (s *fleetStub) BrandingCommitments(ctx context.Context, ids []int) (map[int]*fleet.BrandingCommitment, error) {
	return map[int]*fleet.BrandingCommitment{}, nil
}
func (s *fleetStub) MileageRecords(ctx context.Context, ids []int) (map[int]fleet.MileageRecord, error) {
	return s.mileage, nil
}
func (s *fleetStub) CleaningSlots(ctx context.Context, ids []int) (map[int][]fleet.CleaningSlot, error) {
	return s.cleaning, nil
}
func (s *fleetStub) Bays(ctx context.Context) ([]fleet.StablingBay, error) { return s.bays, nil }

// memStore is an in-memory induction.RosterStore.
type memStore struct {
	docs map[string]*induction.Document
}

func (s *memStore) Put(ctx context.Context, day string, doc *induction.Document) error {
	s.docs[day] = doc
	return nil
}

func (s *memStore) Get(ctx context.Context, day string) (*induction.Document, error) {
	return s.docs[day], nil
}

func testServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.RateLimitPerSec = 1000
	cfg.RateLimitBurst = 1000
	return cfg
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) (*Server, *memStore, *MetricsRegistry) {
	t.Helper()
	store := &memStore{docs: map[string]*induction.Document{}}
	planner := induction.New(newFleetStub(), solver.New(), induction.Options{
		Params: roster.Params{
			TargetSize:          6,
			DepotBalanceLo:      2,
			DepotBalanceHi:      4,
			AgeNewYearsMax:      5,
			AgeDiversityMin:     2,
			VendorMin:           2,
			CriticalBrandingMin: 1,
			MileageBandLo:       50_000,
			MileageBandHi:       150_000,
			HomeBayMin:          3,
		},
		Budget:           5 * time.Second,
		EnableRelaxation: true,
		Store:            store,
	})
	metrics := NewMetricsRegistry()
	h := NewHandlers(planner, metrics, checks)
	return NewServer(testServerConfig(), h, metrics), store, metrics
}

func TestOptimizeEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t, nil)

	body := `{"snapshot_time": "2025-09-15T21:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/induction/optimize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var doc induction.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, induction.StatusOptimal, doc.Summary.Status)
	assert.Equal(t, "2025-09-15", doc.Summary.Date)
	assert.Equal(t, 6, doc.Summary.SelectedCount)
	assert.Len(t, doc.BayAssignments, 6)

	// The finished run was stored under its roster day.
	assert.Contains(t, store.docs, "2025-09-15")
}

func TestOptimizeEndpoint_EmptyBody(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/induction/optimize", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOptimizeEndpoint_BadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/induction/optimize", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeEndpoint_BadSnapshotTime(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	body := `{"snapshot_time": "yesterday"}`
	req := httptest.NewRequest("POST", "/api/induction/optimize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC 3339")
}

func TestRosterByDate(t *testing.T) {
	srv, store, _ := newTestServer(t, nil)
	store.docs["2025-09-15"] = &induction.Document{
		Summary: induction.Summary{Date: "2025-09-15", Status: induction.StatusOptimal},
	}

	req := httptest.NewRequest("GET", "/api/induction/roster/2025-09-15", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var doc induction.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2025-09-15", doc.Summary.Date)
}

func TestRosterByDate_Miss(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/induction/roster/2025-09-16", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no roster stored")
}

func TestRosterByDate_BadDate(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/api/induction/roster/not-a-date", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"postgres"`)
}

func TestHealth_DegradedDependency(t *testing.T) {
	srv, _, _ := newTestServer(t, map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found: /nope")
}

func TestRateLimit(t *testing.T) {
	store := &memStore{docs: map[string]*induction.Document{}}
	planner := induction.New(newFleetStub(), solver.New(), induction.Options{Store: store})
	metrics := NewMetricsRegistry()
	cfg := config.Default().Server
	cfg.RateLimitPerSec = 1
	cfg.RateLimitBurst = 1
	srv := NewServer(cfg, NewHandlers(planner, metrics, nil), metrics)

	first := httptest.NewRecorder()
	srv.Router().ServeHTTP(first, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Router().ServeHTTP(second, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
