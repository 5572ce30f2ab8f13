package solver

import (
	"context"
	"time"

	"github.com/metrorun/inductor/internal/roster"
)

// Greedy is the heuristic engine: top target-K candidates by score with
// greedy bay placement. It never proves optimality, so a non-empty answer is
// always reported as feasible. Used as a stand-in engine in tests and demos;
// the production pipeline uses the same projection internally when the
// branch-and-bound engine returns nothing usable.
type Greedy struct{}

// NewGreedy returns the heuristic solver.
func NewGreedy() *Greedy { return &Greedy{} }

// Solve ignores the budget; the projection is linear in the pool size.
func (Greedy) Solve(ctx context.Context, m *roster.Model, budget time.Duration) (*roster.Solution, error) {
	if err := ctx.Err(); err != nil {
		return &roster.Solution{Status: roster.StatusTimeout, BayIdx: map[int]int{}}, nil
	}
	return roster.GreedyProjection(m), nil
}
