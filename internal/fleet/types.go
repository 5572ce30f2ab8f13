// Package fleet defines the snapshot data model consumed by the induction
// planner: trainsets, their eligibility records and the stabling bays they
// can be parked in. All values are read-only for the duration of one
// optimisation call.
package fleet

import "time"

// Depot identifies one of the two stabling depots.
type Depot string

const (
	DepotA Depot = "Depot A"
	DepotB Depot = "Depot B"
)

// Vendor identifies a trainset manufacturer.
type Vendor string

const (
	VendorHyundaiRotem Vendor = "Hyundai Rotem"
	VendorAlstom       Vendor = "Alstom"
	VendorBEML         Vendor = "BEML"
)

// Vendors lists the known manufacturers in stable order.
var Vendors = []Vendor{VendorHyundaiRotem, VendorAlstom, VendorBEML}

// Status is the normalised operational status of a trainset.
type Status string

const (
	StatusInService   Status = "in_service"
	StatusStandby     Status = "standby"
	StatusMaintenance Status = "maintenance"
	// StatusUnknown marks an unrecognised source value. Trains with unknown
	// status are scored conservatively and only admitted at the fallback tier.
	StatusUnknown Status = "unknown"
)

// Trainset is the central fleet entity at snapshot time.
type Trainset struct {
	ID               int    `json:"trainset_id" db:"trainset_id"`
	Number           string `json:"number" db:"rake_number"`
	Vendor           Vendor `json:"vendor" db:"make_model"`
	YearCommissioned int    `json:"year_commissioned" db:"year_commissioned"`
	HomeDepot        Depot  `json:"home_depot" db:"home_depot"`
	Status           Status `json:"status" db:"status"`
}

// CertDomain is a fitness-certificate regulatory domain.
type CertDomain string

const (
	DomainRollingStock CertDomain = "rolling_stock"
	DomainSignalling   CertDomain = "signalling"
	DomainTelecom      CertDomain = "telecom"
)

// CertDomains lists the three certificate domains; every trainset carries
// exactly one certificate per domain.
var CertDomains = []CertDomain{DomainRollingStock, DomainSignalling, DomainTelecom}

// CertStatus is the normalised validity status of a certificate.
type CertStatus string

const (
	CertValid   CertStatus = "valid"
	CertExpired CertStatus = "expired"
	CertUnknown CertStatus = "unknown"
)

// FitnessCertificate is a domain-specific validity window.
type FitnessCertificate struct {
	Domain    CertDomain `json:"domain" db:"domain"`
	ValidFrom time.Time  `json:"valid_from" db:"valid_from"`
	ValidTo   time.Time  `json:"valid_to" db:"valid_to"`
	Status    CertStatus `json:"status" db:"status"`
}

// IsValid reports whether the certificate is usable at the snapshot instant.
func (c FitnessCertificate) IsValid(at time.Time) bool {
	return c.Status == CertValid && !c.ValidTo.IsZero() && !c.ValidTo.Before(at)
}

// HeadroomDays returns the number of whole days between the snapshot and the
// certificate expiry. Negative for expired windows.
func (c FitnessCertificate) HeadroomDays(at time.Time) int {
	return int(c.ValidTo.Sub(at).Hours() / 24)
}

// JobPriority ranks an open work order.
type JobPriority string

const (
	JobEmergency JobPriority = "emergency"
	JobHigh      JobPriority = "high"
	JobMedium    JobPriority = "medium"
	JobLow       JobPriority = "low"
)

// JobStatus is the lifecycle state of a work order.
type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in_progress"
	JobClosed     JobStatus = "closed"
)

// JobCard is a maintenance work order raised against a trainset.
type JobCard struct {
	TrainsetID         int         `json:"trainset_id" db:"trainset_id"`
	Category           string      `json:"category" db:"category"`
	Priority           JobPriority `json:"priority" db:"priority"`
	Status             JobStatus   `json:"status" db:"status"`
	CreatedOn          time.Time   `json:"created_on" db:"created_on"`
	ExpectedCompletion time.Time   `json:"expected_completion" db:"expected_completion"`
}

// IsBlocking reports whether the job card is an open emergency order.
func (j JobCard) IsBlocking() bool {
	return j.Status == JobOpen && j.Priority == JobEmergency
}

// BrandingPriority ranks a branding commitment.
type BrandingPriority string

const (
	BrandingCritical BrandingPriority = "critical"
	BrandingNormal   BrandingPriority = "normal"
)

// BrandingCommitment is a contractual exterior-wrap exposure commitment.
type BrandingCommitment struct {
	TrainsetID    int              `json:"trainset_id" db:"trainset_id"`
	Advertiser    string           `json:"advertiser" db:"advertiser"`
	Priority      BrandingPriority `json:"priority" db:"priority"`
	TargetHours   float64          `json:"target_exposure_hours" db:"target_exposure_hours"`
	AchievedHours float64          `json:"achieved_exposure_hours" db:"achieved_exposure_hours"`
	CampaignStart time.Time        `json:"campaign_start" db:"campaign_start"`
	CampaignEnd   time.Time        `json:"campaign_end" db:"campaign_end"`
	HasPenalty    bool             `json:"has_penalty" db:"has_penalty"`
}

// IsActive reports whether the campaign window covers the snapshot instant.
func (b BrandingCommitment) IsActive(at time.Time) bool {
	if b.CampaignStart.IsZero() || b.CampaignEnd.IsZero() {
		return false
	}
	return !at.Before(b.CampaignStart) && !at.After(b.CampaignEnd)
}

// ExposureRatio returns achieved/target exposure. A non-positive target is
// reported as fully achieved.
func (b BrandingCommitment) ExposureRatio() float64 {
	if b.TargetHours <= 0 {
		return 1.0
	}
	return b.AchievedHours / b.TargetHours
}

// MileageRecord carries cumulative kilometres and component wear indices.
type MileageRecord struct {
	TrainsetID     int       `json:"trainset_id" db:"trainset_id"`
	TotalKM        int       `json:"total_km" db:"total_km"`
	KMSincePOH     int       `json:"km_since_poh" db:"km_since_poh"`
	KMSinceIOH     int       `json:"km_since_ioh" db:"km_since_ioh"`
	KMSinceTrip    int       `json:"km_since_trip_maintenance" db:"km_since_trip_maintenance"`
	BogieCondition int       `json:"bogie_condition" db:"bogie_condition"`
	BrakeWear      int       `json:"brake_wear" db:"brake_wear"`
	HVACHours      int       `json:"hvac_hours" db:"hvac_hours"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CleaningKind is the type of a cleaning slot.
type CleaningKind string

const (
	CleaningFumigation CleaningKind = "fumigation"
	CleaningDeep       CleaningKind = "deep"
	CleaningDetailing  CleaningKind = "detailing"
	CleaningTrip       CleaningKind = "trip"
)

// CleaningStatus is the lifecycle state of a cleaning slot.
type CleaningStatus string

const (
	CleaningScheduled  CleaningStatus = "scheduled"
	CleaningInProgress CleaningStatus = "in_progress"
	CleaningCompleted  CleaningStatus = "completed"
)

// CleaningSlot is one interior cleaning or detailing booking.
type CleaningSlot struct {
	TrainsetID int            `json:"trainset_id" db:"trainset_id"`
	Kind       CleaningKind   `json:"kind" db:"kind"`
	Status     CleaningStatus `json:"status" db:"status"`
	SlotTime   time.Time      `json:"slot_time" db:"slot_time"`
	Bay        int            `json:"bay" db:"bay"`
	Staff      string         `json:"staff" db:"staff"`
}

// StablingBay is a numbered parking position in a depot. Access cost rises
// with PositionOrder.
type StablingBay struct {
	ID              int    `json:"bay_id" db:"bay_id"`
	Depot           Depot  `json:"depot" db:"depot"`
	Line            string `json:"line" db:"line"`
	PositionOrder   int    `json:"position_order" db:"position_order"`
	Occupied        bool   `json:"occupied" db:"occupied"`
	Blocked         bool   `json:"blocked" db:"blocked"`
	CurrentTrainset int    `json:"currently_assigned_trainset,omitempty" db:"currently_assigned_trainset"`
}

// Available reports whether the bay can receive a trainset tonight.
func (b StablingBay) Available() bool {
	return !b.Occupied && !b.Blocked
}

// TrainsetData joins one trainset with all of its eligibility records for a
// single snapshot.
type TrainsetData struct {
	Trainset
	Certificates map[CertDomain]FitnessCertificate `json:"fitness_certificates"`
	Jobs         []JobCard                         `json:"job_cards"`
	Branding     *BrandingCommitment               `json:"branding_commitment,omitempty"`
	Mileage      MileageRecord                     `json:"mileage_record"`
	Cleaning     []CleaningSlot                    `json:"cleaning_slots"`

	// HomeBayAvailable is derived during snapshot assembly: the train's own
	// stabling position is free, or failing a recorded position, any bay in
	// its home depot is.
	HomeBayAvailable bool `json:"home_bay_available"`
}

// ValidCertCount returns how many of the three certificates are valid at the
// snapshot instant.
func (t *TrainsetData) ValidCertCount(at time.Time) int {
	n := 0
	for _, c := range t.Certificates {
		if c.IsValid(at) {
			n++
		}
	}
	return n
}

// HasOpenEmergencyJob reports whether any work order blocks service entry.
func (t *TrainsetData) HasOpenEmergencyJob() bool {
	for _, j := range t.Jobs {
		if j.IsBlocking() {
			return true
		}
	}
	return false
}

// HasParseFailure reports whether any of the train's records carried an
// unparseable date or enum and was degraded to an unknown variant. Such
// trains are scored conservatively and admitted only at the fallback tier.
func (t *TrainsetData) HasParseFailure() bool {
	if t.Status == StatusUnknown {
		return true
	}
	for _, c := range t.Certificates {
		if c.Status == CertUnknown {
			return true
		}
	}
	return false
}

// ActiveCriticalBranding reports whether the train carries an active
// critical-priority branding campaign at the snapshot instant.
func (t *TrainsetData) ActiveCriticalBranding(at time.Time) bool {
	return t.Branding != nil && t.Branding.Priority == BrandingCritical && t.Branding.IsActive(at)
}

// Snapshot is the immutable input to one optimisation invocation.
type Snapshot struct {
	TakenAt time.Time       `json:"taken_at"`
	Trains  []*TrainsetData `json:"trains"`
	Bays    []StablingBay   `json:"bays"`
}

// AvailableBays returns the bays that can receive a trainset, in bay-id order.
func (s *Snapshot) AvailableBays() []StablingBay {
	out := make([]StablingBay, 0, len(s.Bays))
	for _, b := range s.Bays {
		if b.Available() {
			out = append(out, b)
		}
	}
	return out
}
