package solver

import (
	"math"

	"github.com/metrorun/inductor/internal/roster"
)

// bestAssignment places the given candidates into bays maximising the summed
// bay bonus, using the Hungarian method with potentials on the rectangular
// (candidates x bays) matrix. It returns the candidate->bay index map and the
// achieved bonus total; a nil map means no assignment exists (fewer bays than
// candidates, or no candidates at all).
func bestAssignment(m *roster.Model, cands []int) (map[int]int, int64) {
	n := len(cands)
	cols := len(m.Bays)
	if n == 0 || cols < n || len(m.BayBonus) == 0 {
		return nil, 0
	}

	// Convert to a minimisation problem.
	var maxBonus int64
	for _, c := range cands {
		for j := 0; j < cols; j++ {
			if v := m.BayBonus[c][j]; v > maxBonus {
				maxBonus = v
			}
		}
	}
	cost := func(row, col int) int64 {
		return maxBonus - m.BayBonus[cands[row]][col]
	}

	const inf = math.MaxInt64 / 4
	u := make([]int64, n+1)
	v := make([]int64, cols+1)
	match := make([]int, cols+1) // column -> row (1-based), 0 for free
	way := make([]int, cols+1)

	for row := 1; row <= n; row++ {
		match[0] = row
		j0 := 0
		minv := make([]int64, cols+1)
		used := make([]bool, cols+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := match[j0]
			var delta int64 = inf
			j1 := -1
			for j := 1; j <= cols; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= cols; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if match[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	idx := make(map[int]int, n)
	var bonusTotal int64
	for j := 1; j <= cols; j++ {
		if match[j] == 0 {
			continue
		}
		cand := cands[match[j]-1]
		idx[cand] = j - 1
		bonusTotal += m.BayBonus[cand][j-1]
	}
	return idx, bonusTotal
}
