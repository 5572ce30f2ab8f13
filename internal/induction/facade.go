// Package induction is the service façade: it runs the nightly pipeline
// (snapshot, scoring, admission, model build, solve, extraction) and shapes
// the result into the induction report document.
package induction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metrorun/inductor/internal/compliance"
	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/gate"
	"github.com/metrorun/inductor/internal/roster"
	"github.com/metrorun/inductor/internal/score"
)

// Result statuses for a finished run.
const (
	StatusOptimal      = "optimal"
	StatusFeasible     = "feasible"
	StatusFallbackUsed = "fallback_used"
	StatusInfeasible   = "infeasible"
)

// DiagnosticCancelled marks a run whose caller gave up before any roster
// could be produced.
const DiagnosticCancelled = "cancelled"

// RosterStore persists finished report documents keyed by roster day.
// Storage failures never fail a run.
type RosterStore interface {
	Put(ctx context.Context, day string, doc *Document) error
	Get(ctx context.Context, day string) (*Document, error)
}

// Options configures a Planner.
type Options struct {
	Params           roster.Params
	Budget           time.Duration
	EnableRelaxation bool
	Store            RosterStore // optional
}

// DefaultOptions returns the production planner settings.
func DefaultOptions() Options {
	return Options{
		Params:           roster.DefaultParams(),
		Budget:           10 * time.Second,
		EnableRelaxation: true,
	}
}

// Planner owns one configured pipeline over a data source and a solver.
type Planner struct {
	source fleet.DataSource
	solver roster.Solver
	opts   Options
}

// New assembles a planner. The solver seam takes any roster.Solver; the
// branch-and-bound engine is the production choice.
func New(source fleet.DataSource, solver roster.Solver, opts Options) *Planner {
	if opts.Params.TargetSize == 0 {
		opts.Params = roster.DefaultParams()
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultOptions().Budget
	}
	return &Planner{source: source, solver: solver, opts: opts}
}

// Request selects the snapshot and per-run overrides. Zero values fall back
// to the planner options.
type Request struct {
	SnapshotTime time.Time
	RosterSize   int
	SolverBudget time.Duration
}

// Result is the full outcome of one optimisation run.
type Result struct {
	Status      string            `json:"status"`
	Roster      *roster.Roster    `json:"roster"`
	Compliance  compliance.Report `json:"compliance"`
	Pool        *gate.Result      `json:"-"`
	Diagnostic  string            `json:"diagnostic,omitempty"`
	SnapshotAt  time.Time         `json:"snapshot_at"`
	GeneratedAt time.Time         `json:"generated_at"`
	ExecutionMS int64             `json:"execution_ms"`
}

// Optimise runs the pipeline for one snapshot. A thin fleet or a bay
// shortage comes back as an infeasible Result with a diagnostic; only data
// source failures are errors.
func (p *Planner) Optimise(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	params := p.opts.Params
	if req.RosterSize > 0 {
		params.TargetSize = req.RosterSize
	}
	budget := p.opts.Budget
	if req.SolverBudget > 0 {
		budget = req.SolverBudget
	}
	at := req.SnapshotTime
	if at.IsZero() {
		at = time.Now().UTC()
	}

	snap, err := fleet.LoadSnapshot(ctx, p.source, at)
	if err != nil {
		return nil, fmt.Errorf("failed to load fleet snapshot: %w", err)
	}
	scores := score.ComputeAll(snap)

	log.Info().
		Time("snapshot_at", snap.TakenAt).
		Int("fleet_size", len(snap.Trains)).
		Int("target", params.TargetSize).
		Msg("induction run started")

	pool, err := gate.Admit(snap, params.TargetSize, p.opts.EnableRelaxation)
	if err != nil {
		var insufficient *gate.InsufficientFleetError
		if errors.As(err, &insufficient) {
			return p.infeasible(snap, scores, err.Error(), start), nil
		}
		return nil, err
	}

	m, err := roster.Build(snap, pool, scores, params)
	if err != nil {
		return p.infeasible(snap, scores, err.Error(), start), nil
	}

	sol, err := p.solver.Solve(ctx, m, budget)
	if err != nil {
		log.Error().Err(err).Msg("solver failed, projecting greedy roster")
		sol = &roster.Solution{Status: roster.StatusError}
	}
	if ctx.Err() != nil {
		// The caller gave up: no greedy projection, no persistence.
		return p.infeasible(snap, scores, DiagnosticCancelled, start), nil
	}

	res := p.extract(snap, m, sol, scores, pool, budget)
	res.ExecutionMS = time.Since(start).Milliseconds()

	log.Info().
		Str("status", res.Status).
		Int("selected", len(res.Roster.Selected)).
		Int("rejected", len(res.Roster.Rejected)).
		Str("tiers", compliance.TierNote(pool)).
		Int64("execution_ms", res.ExecutionMS).
		Msg("induction run finished")

	p.persist(ctx, res)
	return res, nil
}

// extract turns a solver valuation into a Result, projecting a greedy
// roster when the solver came back empty-handed.
func (p *Planner) extract(snap *fleet.Snapshot, m *roster.Model, sol *roster.Solution, scores map[int]score.Score, pool *gate.Result, budget time.Duration) *Result {
	res := &Result{
		Pool:        pool,
		SnapshotAt:  snap.TakenAt,
		GeneratedAt: time.Now().UTC(),
	}

	fellBack := false
	switch sol.Status {
	case roster.StatusOptimal:
		res.Status = StatusOptimal
	case roster.StatusFeasible:
		res.Status = StatusFeasible
	default:
		// Infeasible, timeout without incumbent, or solver error: the hard
		// constraints still admit the greedy projection unless the pool
		// itself is short.
		fellBack = true
		sol = roster.GreedyProjection(m)
		res.Status = StatusFallbackUsed
		if sol.Status == roster.StatusInfeasible {
			res.Status = StatusInfeasible
		}
	}

	res.Roster = roster.Extract(snap, m, sol, scores, pool.TierOf)
	if fellBack && res.Status == StatusFallbackUsed {
		res.Roster.Violations = append(res.Roster.Violations, roster.ViolationSolverFallback)
	}
	res.Compliance = compliance.Build(res.Roster, m, p.opts.Params)
	res.Diagnostic = diagnosticFor(res.Status, budget)
	return res
}

func diagnosticFor(status string, budget time.Duration) string {
	if status == StatusFallbackUsed {
		return fmt.Sprintf("solver budget %s exhausted without a proven roster", budget)
	}
	return ""
}

// infeasible shapes the everything-rejected result used when admission or
// the bay inventory cannot reach the target.
func (p *Planner) infeasible(snap *fleet.Snapshot, scores map[int]score.Score, diagnostic string, start time.Time) *Result {
	empty := &roster.Solution{Status: roster.StatusInfeasible, BayIdx: map[int]int{}}
	r := roster.Extract(snap, &roster.Model{TakenAt: snap.TakenAt}, empty, scores, nil)
	res := &Result{
		Status:      StatusInfeasible,
		Roster:      r,
		Compliance:  compliance.Report{},
		Pool:        &gate.Result{TierOf: map[int]gate.Tier{}},
		Diagnostic:  diagnostic,
		SnapshotAt:  snap.TakenAt,
		GeneratedAt: time.Now().UTC(),
		ExecutionMS: time.Since(start).Milliseconds(),
	}
	log.Warn().Str("diagnostic", diagnostic).Msg("induction run infeasible")
	return res
}

// persist stores the report document; failures are logged and swallowed.
func (p *Planner) persist(ctx context.Context, res *Result) {
	if p.opts.Store == nil {
		return
	}
	day := res.SnapshotAt.Format("2006-01-02")
	if err := p.opts.Store.Put(ctx, day, BuildDocument(res)); err != nil {
		log.Warn().Err(err).Str("day", day).Msg("failed to cache roster document")
	}
}

// Cached returns the stored report document for a roster day, if any.
func (p *Planner) Cached(ctx context.Context, day string) (*Document, error) {
	if p.opts.Store == nil {
		return nil, nil
	}
	return p.opts.Store.Get(ctx, day)
}
