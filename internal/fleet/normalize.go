package fleet

import (
	"strings"
	"time"
)

// The source systems blend two conventions for operational status
// ({ready, standby, maintenance} and {in_service, standby, IBL_maintenance}).
// Normalisation happens here, at the data-source boundary, so the core only
// ever sees the canonical Status values.

// NormalizeStatus maps a raw source status onto the canonical enum. Values
// that match neither convention degrade to StatusUnknown.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ready", "in_service", "in-service":
		return StatusInService
	case "standby":
		return StatusStandby
	case "maintenance", "ibl_maintenance", "ibl-maintenance":
		return StatusMaintenance
	default:
		return StatusUnknown
	}
}

// NormalizeCertStatus maps a raw certificate status onto the canonical enum.
func NormalizeCertStatus(raw string) CertStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "valid":
		return CertValid
	case "expired", "invalid":
		return CertExpired
	default:
		return CertUnknown
	}
}

// NormalizeJobStatus maps a raw job-card status onto the canonical enum.
// Unrecognised values are treated as closed so a malformed record cannot
// block a trainset on its own.
func NormalizeJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open":
		return JobOpen
	case "in_progress", "in-progress":
		return JobInProgress
	case "closed", "done":
		return JobClosed
	default:
		return JobClosed
	}
}

// NormalizeJobPriority maps a raw job-card priority onto the canonical enum.
// Unrecognised values degrade to low.
func NormalizeJobPriority(raw string) JobPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "emergency":
		return JobEmergency
	case "high":
		return JobHigh
	case "medium":
		return JobMedium
	default:
		return JobLow
	}
}

// NormalizeCleaningStatus maps a raw cleaning-slot status onto the canonical
// enum.
func NormalizeCleaningStatus(raw string) CleaningStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "done":
		return CleaningCompleted
	case "in_progress", "in-progress":
		return CleaningInProgress
	default:
		return CleaningScheduled
	}
}

// dateLayouts are the formats seen across the source feeds.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a source date string. The zero time and false are
// returned for malformed input; callers degrade the owning record rather
// than abort.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
