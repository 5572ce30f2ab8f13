package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/metrorun/inductor/internal/induction"
)

// HealthCheck reports the readiness of one dependency.
type HealthCheck func(ctx context.Context) error

// Handlers carries the route implementations.
type Handlers struct {
	planner *induction.Planner
	metrics *MetricsRegistry
	checks  map[string]HealthCheck
	started time.Time
}

// NewHandlers builds the handler set. Dependency checks are optional and
// keyed by name in the health payload.
func NewHandlers(planner *induction.Planner, metrics *MetricsRegistry, checks map[string]HealthCheck) *Handlers {
	return &Handlers{
		planner: planner,
		metrics: metrics,
		checks:  checks,
		started: time.Now(),
	}
}

// optimizeRequest is the POST /api/induction/optimize body; every field is
// optional.
type optimizeRequest struct {
	SnapshotTime        string `json:"snapshot_time,omitempty"`
	RosterSize          int    `json:"roster_size,omitempty"`
	SolverBudgetSeconds int    `json:"solver_budget_seconds,omitempty"`
}

// Optimize runs the pipeline and returns the full report document.
func (h *Handlers) Optimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	req := induction.Request{RosterSize: body.RosterSize}
	if body.SnapshotTime != "" {
		at, err := time.Parse(time.RFC3339, body.SnapshotTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "snapshot_time must be RFC 3339")
			return
		}
		req.SnapshotTime = at
	}
	if body.SolverBudgetSeconds > 0 {
		req.SolverBudget = time.Duration(body.SolverBudgetSeconds) * time.Second
	}

	h.metrics.ActiveRuns.Inc()
	defer h.metrics.ActiveRuns.Dec()

	start := time.Now()
	res, err := h.planner.Optimise(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("optimisation failed")
		writeError(w, http.StatusInternalServerError, "optimisation failed: "+err.Error())
		return
	}
	h.metrics.RecordRun(res.Status, time.Since(start).Seconds(), len(res.Roster.Selected))
	if res.Status == induction.StatusFallbackUsed {
		h.metrics.FallbackRuns.Inc()
	}

	writeJSON(w, http.StatusOK, induction.BuildDocument(res))
}

// RosterByDate serves the cached report document for a roster day.
func (h *Handlers) RosterByDate(w http.ResponseWriter, r *http.Request) {
	day := mux.Vars(r)["date"]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	doc, err := h.planner.Cached(r.Context(), day)
	if err != nil {
		log.Warn().Err(err).Str("day", day).Msg("roster cache read failed")
		writeError(w, http.StatusInternalServerError, "cache read failed")
		return
	}
	if doc == nil {
		h.metrics.RecordCacheMiss()
		writeError(w, http.StatusNotFound, "no roster stored for "+day)
		return
	}
	h.metrics.RecordCacheHit()
	writeJSON(w, http.StatusOK, doc)
}

// Health reports liveness plus per-dependency readiness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	type depStatus struct {
		Healthy bool   `json:"healthy"`
		Error   string `json:"error,omitempty"`
	}
	payload := struct {
		Status        string               `json:"status"`
		UptimeSeconds int64                `json:"uptime_seconds"`
		Dependencies  map[string]depStatus `json:"dependencies,omitempty"`
	}{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}

	code := http.StatusOK
	if len(h.checks) > 0 {
		payload.Dependencies = map[string]depStatus{}
		for name, check := range h.checks {
			if err := check(r.Context()); err != nil {
				payload.Dependencies[name] = depStatus{Error: err.Error()}
				payload.Status = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				payload.Dependencies[name] = depStatus{Healthy: true}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, code, payload)
}

// NotFound is the JSON 404 handler.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, http.StatusNotFound, "not found: "+r.URL.Path)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
