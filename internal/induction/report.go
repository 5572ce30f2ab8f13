package induction

import (
	"sort"
	"time"

	"github.com/metrorun/inductor/internal/compliance"
	"github.com/metrorun/inductor/internal/roster"
)

// Summary is the scheduling_summary block of the report document.
type Summary struct {
	Date           string    `json:"date"`
	Status         string    `json:"status"`
	FleetSize      int       `json:"fleet_size"`
	SelectedCount  int       `json:"selected_count"`
	RejectedCount  int       `json:"rejected_count"`
	ObjectiveCents int64     `json:"objective_cents"`
	Violations     []string  `json:"violations"`
	Diagnostic     string    `json:"diagnostic,omitempty"`
	ExecutionMS    int64     `json:"execution_ms"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// BayAssignment is one row of the bay_assignments block, in bay id order.
type BayAssignment struct {
	BayID       int    `json:"bay_id"`
	Depot       string `json:"depot"`
	TrainsetID  int    `json:"trainset_id"`
	TrainNumber string `json:"train_number"`
}

// Document is the full induction report handed to operators and the HTTP
// layer.
type Document struct {
	Summary        Summary                `json:"scheduling_summary"`
	Compliance     compliance.Report      `json:"compliance"`
	Selected       []roster.SelectedEntry `json:"selected"`
	Rejected       []roster.RejectedEntry `json:"rejected"`
	BayAssignments []BayAssignment        `json:"bay_assignments"`
}

// BuildDocument shapes a Result into the report document.
func BuildDocument(res *Result) *Document {
	r := res.Roster
	violations := r.Violations
	if violations == nil {
		violations = []string{}
	}

	doc := &Document{
		Summary: Summary{
			Date:           res.SnapshotAt.Format("2006-01-02"),
			Status:         res.Status,
			FleetSize:      len(r.Selected) + len(r.Rejected),
			SelectedCount:  len(r.Selected),
			RejectedCount:  len(r.Rejected),
			ObjectiveCents: r.ObjectiveCents,
			Violations:     violations,
			Diagnostic:     res.Diagnostic,
			ExecutionMS:    res.ExecutionMS,
			GeneratedAt:    res.GeneratedAt,
		},
		Compliance: res.Compliance,
		Selected:   r.Selected,
		Rejected:   r.Rejected,
	}

	for _, e := range r.Selected {
		doc.BayAssignments = append(doc.BayAssignments, BayAssignment{
			BayID:       e.BayID,
			Depot:       string(e.BayDepot),
			TrainsetID:  e.TrainsetID,
			TrainNumber: e.Number,
		})
	}
	sort.Slice(doc.BayAssignments, func(i, j int) bool {
		return doc.BayAssignments[i].BayID < doc.BayAssignments[j].BayID
	})
	return doc
}
