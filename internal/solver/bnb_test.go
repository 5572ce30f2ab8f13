package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrorun/inductor/internal/roster"
)

// testModel builds a model straight from objective coefficients, assumed to
// be in descending order like roster.Build produces.
func testModel(target int, objs []int64, groups []roster.GroupBound) *roster.Model {
	m := &roster.Model{Target: target, Groups: groups}
	for i, o := range objs {
		m.Candidates = append(m.Candidates, roster.Candidate{ObjectiveCents: o})
		_ = i
	}
	return m
}

// bruteForceBest enumerates every target-sized subset and returns the best
// joint objective (score plus exhaustively-priced bay bonus) among those
// satisfying the group bounds, or -1 if none does.
func bruteForceBest(m *roster.Model) int64 {
	free := m.Free()
	best := int64(-1)
	var recurse func(start int, chosen []int)
	recurse = func(start int, chosen []int) {
		if len(chosen) == m.Target {
			for _, g := range m.Groups {
				n := 0
				members := map[int]bool{}
				for _, c := range g.Members {
					members[c] = true
				}
				for _, c := range chosen {
					if members[c] {
						n++
					}
				}
				if n < g.Lo || n > g.Hi {
					return
				}
			}
			var total int64
			for _, c := range chosen {
				total += m.Candidates[c].ObjectiveCents
			}
			if len(m.Bays) > 0 {
				total += bruteForceAssignment(m.BayBonus, chosen, len(m.Bays))
			}
			if total > best {
				best = total
			}
			return
		}
		for i := start; i < len(free); i++ {
			recurse(i+1, append(chosen, free[i]))
		}
	}
	recurse(0, nil)
	return best
}

func solve(t *testing.T, m *roster.Model) *roster.Solution {
	t.Helper()
	sol, err := New().Solve(context.Background(), m, time.Second)
	require.NoError(t, err)
	return sol
}

func TestSolve_UnconstrainedPicksTopK(t *testing.T) {
	m := testModel(3, []int64{900, 800, 700, 600, 500}, nil)
	sol := solve(t, m)

	assert.Equal(t, roster.StatusOptimal, sol.Status)
	assert.Equal(t, []int{0, 1, 2}, sol.Selected)
	assert.Equal(t, int64(2400), sol.ObjectiveCents)
}

func TestSolve_GroupLowerBoundForcesSwap(t *testing.T) {
	// Candidates 3 and 4 form a group needing both; top-3 greedy would take
	// 0,1,2.
	m := testModel(3, []int64{900, 800, 700, 600, 500}, []roster.GroupBound{
		{Name: "g", Members: []int{3, 4}, Lo: 2, Hi: 5},
	})
	sol := solve(t, m)

	assert.Equal(t, roster.StatusOptimal, sol.Status)
	assert.Equal(t, []int{0, 3, 4}, sol.Selected)
	assert.Equal(t, int64(2000), sol.ObjectiveCents)
}

func TestSolve_GroupUpperBoundCaps(t *testing.T) {
	m := testModel(3, []int64{900, 800, 700, 600}, []roster.GroupBound{
		{Name: "g", Members: []int{0, 1, 2}, Lo: 0, Hi: 2},
	})
	sol := solve(t, m)

	assert.Equal(t, roster.StatusOptimal, sol.Status)
	assert.Equal(t, []int{0, 1, 3}, sol.Selected)
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	objs := []int64{950, 910, 880, 850, 820, 780, 750, 730, 700, 660, 640, 600}
	tests := []struct {
		name   string
		target int
		groups []roster.GroupBound
	}{
		{"no_groups", 5, nil},
		{
			"two_overlapping_groups", 6,
			[]roster.GroupBound{
				{Name: "a", Members: []int{0, 2, 4, 6, 8, 10}, Lo: 2, Hi: 4},
				{Name: "b", Members: []int{1, 2, 3, 9, 10, 11}, Lo: 3, Hi: 12},
			},
		},
		{
			"tight_bounds", 4,
			[]roster.GroupBound{
				{Name: "a", Members: []int{0, 1, 2}, Lo: 1, Hi: 1},
				{Name: "b", Members: []int{3, 4, 5}, Lo: 2, Hi: 2},
				{Name: "c", Members: []int{8, 9, 10, 11}, Lo: 1, Hi: 12},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel(tt.target, objs, tt.groups)
			sol := solve(t, m)
			require.Equal(t, roster.StatusOptimal, sol.Status)
			assert.Equal(t, bruteForceBest(m), sol.ObjectiveCents)
		})
	}
}

func TestSolve_InfeasibleLowerBound(t *testing.T) {
	// The group needs 3 of its members but only 1 can fit beside the other
	// mandatory group.
	m := testModel(2, []int64{900, 800, 700, 600}, []roster.GroupBound{
		{Name: "a", Members: []int{0, 1, 2}, Lo: 2, Hi: 4},
		{Name: "b", Members: []int{3}, Lo: 1, Hi: 4},
	})
	sol := solve(t, m)
	assert.Equal(t, roster.StatusInfeasible, sol.Status)
	assert.Empty(t, sol.Selected)
}

func TestSolve_TooFewFreeCandidates(t *testing.T) {
	m := testModel(3, []int64{900, 800}, nil)
	sol := solve(t, m)
	assert.Equal(t, roster.StatusInfeasible, sol.Status)
}

func TestSolve_FixedZeroNeverSelected(t *testing.T) {
	m := testModel(2, []int64{900, 800, 700}, nil)
	m.Candidates[0].FixedZero = true
	sol := solve(t, m)

	require.Equal(t, roster.StatusOptimal, sol.Status)
	assert.Equal(t, []int{1, 2}, sol.Selected)
}

func TestSolve_Deterministic(t *testing.T) {
	objs := []int64{900, 900, 900, 900, 900, 900}
	groups := []roster.GroupBound{{Name: "g", Members: []int{2, 3, 4, 5}, Lo: 1, Hi: 3}}

	first := solve(t, testModel(3, objs, groups))
	for i := 0; i < 5; i++ {
		again := solve(t, testModel(3, objs, groups))
		assert.Equal(t, first.Selected, again.Selected)
		assert.Equal(t, first.ObjectiveCents, again.ObjectiveCents)
	}
}

// deepInfeasibleModel has no feasible leaf (the two lower bounds need 40
// picks out of 30) but the search takes thousands of nodes to prove it, so
// an exhausted budget surfaces as a timeout.
func deepInfeasibleModel() *roster.Model {
	objs := make([]int64, 60)
	for i := range objs {
		objs[i] = int64(1000 - i)
	}
	return testModel(30, objs, []roster.GroupBound{
		{Name: "a", Members: seq(0, 25), Lo: 20, Hi: 60},
		{Name: "b", Members: seq(25, 50), Lo: 20, Hi: 60},
	})
}

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

func TestSolve_BudgetExpiryWithoutIncumbent(t *testing.T) {
	sol, err := New().Solve(context.Background(), deepInfeasibleModel(), 0)
	require.NoError(t, err)
	assert.Equal(t, roster.StatusTimeout, sol.Status)
	assert.Empty(t, sol.Selected)
}

func TestSolve_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := New().Solve(ctx, deepInfeasibleModel(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, roster.StatusTimeout, sol.Status)
}

func TestSolve_CancelledBeforeStartOfEasyModel(t *testing.T) {
	// Cancellation must win even when the model is trivially solvable.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := New().Solve(ctx, testModel(2, []int64{900, 800, 700}, nil), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, roster.StatusTimeout, sol.Status)
	assert.Empty(t, sol.Selected)
}
