// Package solver holds the optimisation engine behind the roster.Solver
// seam: a deterministic depth-first branch-and-bound over the selection
// variables, with each leaf completed by an exact rectangular assignment
// of the selected trains to stabling bays. Incumbents and pruning work on
// the joint objective (score plus bay bonus), with the bonus entering the
// bound as a per-candidate row maximum so the bound stays admissible.
//
// The search branches include-first over candidates in descending score
// order, so the greedy roster is the first leaf reached and pruning is
// effective immediately. Deadline checks are sparse (every 1024 node
// events) to keep the hot loop cheap.
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/metrorun/inductor/internal/roster"
)

const deadlineCheckMask = 1023

// BranchBound is the production solver. The zero value is ready to use.
type BranchBound struct{}

// New returns a branch-and-bound solver.
func New() *BranchBound { return &BranchBound{} }

type search struct {
	m    *roster.Model
	free []int // branchable candidate indices, best-first

	obj       []int64 // objective cents per free position
	prefixObj []int64 // prefixObj[i] = sum obj[0:i]
	maxBonus  []int64 // best bay bonus reachable per free position
	sufBonus  []int64 // sufBonus[i] = max maxBonus[i:]
	groupsOf  [][]int // free position -> group ids
	lo, hi    []int   // per group
	selCnt    []int   // per group, selected so far
	remCnt    []int   // per group, members at or after the cursor

	target     int
	selected   []int // free positions currently included
	curObj     int64
	curBonusUB int64 // sum of maxBonus over the included positions

	best    []int
	bestIdx map[int]int // candidate -> bay index for the incumbent
	bestObj int64       // joint objective of the incumbent
	found   bool

	deadline time.Time
	ctx      context.Context
	steps    int
	stopped  bool
}

// Solve runs the joint selection-and-assignment search. The verdict is
// optimal when the search space was exhausted, feasible when the budget
// expired with an incumbent in hand, timeout when it expired without one,
// and infeasible when no selection satisfies the model.
func (b *BranchBound) Solve(ctx context.Context, m *roster.Model, budget time.Duration) (*roster.Solution, error) {
	if ctx.Err() != nil {
		return &roster.Solution{Status: roster.StatusTimeout}, nil
	}
	s := &search{
		m:        m,
		free:     m.Free(),
		target:   m.Target,
		deadline: time.Now().Add(budget),
		ctx:      ctx,
	}
	if len(s.free) < s.target {
		return &roster.Solution{Status: roster.StatusInfeasible}, nil
	}
	s.prepare()
	s.dfs(0)

	switch {
	case !s.found && s.stopped:
		return &roster.Solution{Status: roster.StatusTimeout}, nil
	case !s.found:
		return &roster.Solution{Status: roster.StatusInfeasible}, nil
	}

	status := roster.StatusOptimal
	if s.stopped {
		status = roster.StatusFeasible
	}

	sol := &roster.Solution{Status: status, ObjectiveCents: s.bestObj, BayIdx: s.bestIdx}
	for _, pos := range s.best {
		sol.Selected = append(sol.Selected, s.free[pos])
	}
	sort.Ints(sol.Selected)
	return sol, nil
}

func (s *search) prepare() {
	n := len(s.free)
	s.obj = make([]int64, n)
	s.prefixObj = make([]int64, n+1)
	s.maxBonus = make([]int64, n)
	s.sufBonus = make([]int64, n+1)
	s.groupsOf = make([][]int, n)

	posOf := make(map[int]int, n)
	for i, c := range s.free {
		s.obj[i] = s.m.Candidates[c].ObjectiveCents
		s.prefixObj[i+1] = s.prefixObj[i] + s.obj[i]
		if len(s.m.Bays) > 0 && len(s.m.BayBonus) > c {
			for _, v := range s.m.BayBonus[c] {
				if v > s.maxBonus[i] {
					s.maxBonus[i] = v
				}
			}
		}
		posOf[c] = i
	}
	for i := n - 1; i >= 0; i-- {
		s.sufBonus[i] = s.maxBonus[i]
		if s.sufBonus[i+1] > s.sufBonus[i] {
			s.sufBonus[i] = s.sufBonus[i+1]
		}
	}

	g := len(s.m.Groups)
	s.lo = make([]int, g)
	s.hi = make([]int, g)
	s.selCnt = make([]int, g)
	s.remCnt = make([]int, g)
	for gi, grp := range s.m.Groups {
		s.lo[gi] = grp.Lo
		s.hi[gi] = grp.Hi
		for _, c := range grp.Members {
			pos, ok := posOf[c]
			if !ok {
				continue // pinned to zero, never selectable
			}
			s.groupsOf[pos] = append(s.groupsOf[pos], gi)
			s.remCnt[gi]++
		}
	}
}

func (s *search) expired() bool {
	if s.stopped {
		return true
	}
	s.steps++
	if s.steps&deadlineCheckMask != 0 {
		return false
	}
	if s.ctx.Err() != nil || time.Now().After(s.deadline) {
		s.stopped = true
	}
	return s.stopped
}

// dfs explores candidates from position i. Candidates are in descending
// score order, so the remaining score bound is a plain prefix sum; the
// bay-bonus side of the bound relaxes the one-train-per-bay constraint
// down to each candidate's best reachable bonus.
func (s *search) dfs(i int) {
	if s.expired() {
		return
	}
	k := len(s.selected)
	if k == s.target {
		s.recordLeaf()
		return
	}

	need := s.target - k
	avail := len(s.free) - i
	if avail < need {
		return
	}
	// Admissible bound: everything still selectable, constraints ignored.
	bound := s.curObj + s.curBonusUB +
		s.prefixObj[i+need] - s.prefixObj[i] + int64(need)*s.sufBonus[i]
	if s.found && bound <= s.bestObj {
		return
	}
	for gi := range s.lo {
		if s.selCnt[gi]+s.remCnt[gi] < s.lo[gi] {
			return
		}
		if s.lo[gi]-s.selCnt[gi] > need {
			return
		}
	}

	// Include branch first: drives straight to the greedy incumbent.
	if s.canInclude(i) {
		s.push(i)
		s.dfs(i + 1)
		s.pop(i)
	}

	// Exclude branch.
	for _, gi := range s.groupsOf[i] {
		s.remCnt[gi]--
	}
	s.dfs(i + 1)
	for _, gi := range s.groupsOf[i] {
		s.remCnt[gi]++
	}
}

func (s *search) canInclude(i int) bool {
	for _, gi := range s.groupsOf[i] {
		if s.selCnt[gi]+1 > s.hi[gi] {
			return false
		}
	}
	return true
}

func (s *search) push(i int) {
	s.selected = append(s.selected, i)
	s.curObj += s.obj[i]
	s.curBonusUB += s.maxBonus[i]
	for _, gi := range s.groupsOf[i] {
		s.selCnt[gi]++
		s.remCnt[gi]--
	}
}

func (s *search) pop(i int) {
	s.selected = s.selected[:len(s.selected)-1]
	s.curObj -= s.obj[i]
	s.curBonusUB -= s.maxBonus[i]
	for _, gi := range s.groupsOf[i] {
		s.selCnt[gi]--
		s.remCnt[gi]++
	}
}

// recordLeaf prices a complete selection. The cheap relaxed bonus screens
// out hopeless leaves before the Hungarian assignment prices the exact one.
func (s *search) recordLeaf() {
	for gi := range s.lo {
		if s.selCnt[gi] < s.lo[gi] {
			return
		}
	}
	if s.found && s.curObj+s.curBonusUB <= s.bestObj {
		return
	}
	cands := make([]int, len(s.selected))
	for i, pos := range s.selected {
		cands[i] = s.free[pos]
	}
	idx, bonus := bestAssignment(s.m, cands)
	total := s.curObj + bonus
	if s.found && total <= s.bestObj {
		return
	}
	s.found = true
	s.bestObj = total
	s.bestIdx = idx
	s.best = append(s.best[:0], s.selected...)
}
