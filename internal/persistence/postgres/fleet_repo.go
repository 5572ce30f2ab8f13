// Package postgres implements the fleet data source on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/metrorun/inductor/internal/fleet"
)

// FleetRepo implements fleet.DataSource on a sqlx connection. Source enums
// and timestamps are normalised on read: an unrecognised value degrades the
// row rather than failing the snapshot.
type FleetRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewFleetRepo wraps an open connection.
func NewFleetRepo(db *sqlx.DB, timeout time.Duration) *FleetRepo {
	return &FleetRepo{db: db, timeout: timeout}
}

type trainsetRow struct {
	ID               int    `db:"trainset_id"`
	Number           string `db:"rake_number"`
	Vendor           string `db:"make_model"`
	YearCommissioned int    `db:"year_commissioned"`
	HomeDepot        string `db:"home_depot"`
	Status           string `db:"status"`
}

// Trainsets returns the whole fleet with normalised statuses.
func (r *FleetRepo) Trainsets(ctx context.Context) ([]fleet.Trainset, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []trainsetRow
	query := `
		SELECT trainset_id, rake_number, make_model, year_commissioned, home_depot, status
		FROM trainsets
		ORDER BY trainset_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query trainsets: %w", err)
	}

	out := make([]fleet.Trainset, 0, len(rows))
	for _, row := range rows {
		out = append(out, fleet.Trainset{
			ID:               row.ID,
			Number:           row.Number,
			Vendor:           fleet.Vendor(row.Vendor),
			YearCommissioned: row.YearCommissioned,
			HomeDepot:        fleet.Depot(row.HomeDepot),
			Status:           fleet.NormalizeStatus(row.Status),
		})
	}
	return out, nil
}

type certRow struct {
	TrainsetID int    `db:"trainset_id"`
	Domain     string `db:"domain"`
	ValidFrom  string `db:"valid_from"`
	ValidTo    string `db:"valid_to"`
	Status     string `db:"status"`
}

// FitnessCertificates returns the per-domain certificate map for each train.
func (r *FleetRepo) FitnessCertificates(ctx context.Context, ids []int) (map[int]map[fleet.CertDomain]fleet.FitnessCertificate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []certRow
	query := `
		SELECT trainset_id, domain, valid_from, valid_to, status
		FROM fitness_certificates
		WHERE trainset_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to query fitness certificates: %w", err)
	}

	out := map[int]map[fleet.CertDomain]fleet.FitnessCertificate{}
	for _, row := range rows {
		cert := fleet.FitnessCertificate{
			Domain: fleet.CertDomain(row.Domain),
			Status: fleet.NormalizeCertStatus(row.Status),
		}
		var ok bool
		if cert.ValidFrom, ok = fleet.ParseDate(row.ValidFrom); !ok {
			cert.Status = fleet.CertUnknown
		}
		if cert.ValidTo, ok = fleet.ParseDate(row.ValidTo); !ok {
			cert.Status = fleet.CertUnknown
		}
		if out[row.TrainsetID] == nil {
			out[row.TrainsetID] = map[fleet.CertDomain]fleet.FitnessCertificate{}
		}
		out[row.TrainsetID][cert.Domain] = cert
	}
	return out, nil
}

type jobRow struct {
	TrainsetID         int    `db:"trainset_id"`
	Category           string `db:"category"`
	Priority           string `db:"priority"`
	Status             string `db:"status"`
	CreatedOn          string `db:"created_on"`
	ExpectedCompletion string `db:"expected_completion"`
}

// JobCards returns the open and recent work orders for each train.
func (r *FleetRepo) JobCards(ctx context.Context, ids []int) (map[int][]fleet.JobCard, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []jobRow
	query := `
		SELECT trainset_id, category, priority, status, created_on, expected_completion
		FROM job_cards
		WHERE trainset_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to query job cards: %w", err)
	}

	out := map[int][]fleet.JobCard{}
	for _, row := range rows {
		job := fleet.JobCard{
			TrainsetID: row.TrainsetID,
			Category:   row.Category,
			Priority:   fleet.NormalizeJobPriority(row.Priority),
			Status:     fleet.NormalizeJobStatus(row.Status),
		}
		job.CreatedOn, _ = fleet.ParseDate(row.CreatedOn)
		job.ExpectedCompletion, _ = fleet.ParseDate(row.ExpectedCompletion)
		out[row.TrainsetID] = append(out[row.TrainsetID], job)
	}
	return out, nil
}

type brandingRow struct {
	TrainsetID    int     `db:"trainset_id"`
	Advertiser    string  `db:"advertiser"`
	Priority      string  `db:"priority"`
	TargetHours   float64 `db:"target_exposure_hours"`
	AchievedHours float64 `db:"achieved_exposure_hours"`
	CampaignStart string  `db:"campaign_start"`
	CampaignEnd   string  `db:"campaign_end"`
	HasPenalty    bool    `db:"has_penalty"`
}

// BrandingCommitments returns the single active commitment per train, if any.
func (r *FleetRepo) BrandingCommitments(ctx context.Context, ids []int) (map[int]*fleet.BrandingCommitment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []brandingRow
	query := `
		SELECT trainset_id, advertiser, priority, target_exposure_hours,
		       achieved_exposure_hours, campaign_start, campaign_end, has_penalty
		FROM branding_commitments
		WHERE trainset_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to query branding commitments: %w", err)
	}

	out := map[int]*fleet.BrandingCommitment{}
	for _, row := range rows {
		b := &fleet.BrandingCommitment{
			TrainsetID:    row.TrainsetID,
			Advertiser:    row.Advertiser,
			Priority:      fleet.BrandingPriority(row.Priority),
			TargetHours:   row.TargetHours,
			AchievedHours: row.AchievedHours,
			HasPenalty:    row.HasPenalty,
		}
		b.CampaignStart, _ = fleet.ParseDate(row.CampaignStart)
		b.CampaignEnd, _ = fleet.ParseDate(row.CampaignEnd)
		out[row.TrainsetID] = b
	}
	return out, nil
}

// MileageRecords returns cumulative kilometres and wear indices per train.
func (r *FleetRepo) MileageRecords(ctx context.Context, ids []int) (map[int]fleet.MileageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []fleet.MileageRecord
	query := `
		SELECT trainset_id, total_km, km_since_poh, km_since_ioh,
		       km_since_trip_maintenance, bogie_condition, brake_wear, hvac_hours, updated_at
		FROM mileage_records
		WHERE trainset_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to query mileage records: %w", err)
	}

	out := map[int]fleet.MileageRecord{}
	for _, row := range rows {
		out[row.TrainsetID] = row
	}
	return out, nil
}

type cleaningRow struct {
	TrainsetID int    `db:"trainset_id"`
	Kind       string `db:"kind"`
	Status     string `db:"status"`
	SlotTime   string `db:"slot_time"`
	Bay        int    `db:"bay"`
	Staff      string `db:"staff"`
}

// CleaningSlots returns the recent and scheduled cleaning bookings per train.
func (r *FleetRepo) CleaningSlots(ctx context.Context, ids []int) (map[int][]fleet.CleaningSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []cleaningRow
	query := `
		SELECT trainset_id, kind, status, slot_time, bay, staff
		FROM cleaning_slots
		WHERE trainset_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to query cleaning slots: %w", err)
	}

	out := map[int][]fleet.CleaningSlot{}
	for _, row := range rows {
		slot := fleet.CleaningSlot{
			TrainsetID: row.TrainsetID,
			Kind:       fleet.CleaningKind(row.Kind),
			Status:     fleet.NormalizeCleaningStatus(row.Status),
			Bay:        row.Bay,
			Staff:      row.Staff,
		}
		slot.SlotTime, _ = fleet.ParseDate(row.SlotTime)
		out[row.TrainsetID] = append(out[row.TrainsetID], slot)
	}
	return out, nil
}

// Bays returns every stabling position across both depots.
func (r *FleetRepo) Bays(ctx context.Context) ([]fleet.StablingBay, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []fleet.StablingBay
	query := `
		SELECT bay_id, depot, line, position_order, occupied, blocked,
		       COALESCE(currently_assigned_trainset, 0) AS currently_assigned_trainset
		FROM stabling_bays
		ORDER BY bay_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query stabling bays: %w", err)
	}
	return rows, nil
}
