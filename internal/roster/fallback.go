package roster

// GreedyProjection builds a valuation without the solver: the top target-K
// free candidates by score, then stable bay assignment in score order, each
// train taking the free bay with the highest bay bonus (lowest bay id on
// ties). Only the hard constraints survive; the caller records the fallback
// violation note.
func GreedyProjection(m *Model) *Solution {
	sol := &Solution{Status: StatusFeasible, BayIdx: map[int]int{}}

	free := m.Free()
	if len(free) < m.Target {
		sol.Status = StatusInfeasible
		return sol
	}

	// Candidates are already in descending score order.
	sol.Selected = append(sol.Selected, free[:m.Target]...)
	for _, c := range sol.Selected {
		sol.ObjectiveCents += m.Candidates[c].ObjectiveCents
	}

	bayTaken := make([]bool, len(m.Bays))
	for _, c := range sol.Selected {
		bestBay := -1
		var bestBonus int64 = -1
		for j := range m.Bays {
			if bayTaken[j] {
				continue
			}
			if bonus := m.BayBonus[c][j]; bonus > bestBonus {
				bestBonus = bonus
				bestBay = j
			}
		}
		if bestBay < 0 {
			break // fewer bays than target; Build guards against this
		}
		bayTaken[bestBay] = true
		sol.BayIdx[c] = bestBay
		sol.ObjectiveCents += bestBonus
	}

	return sol
}
