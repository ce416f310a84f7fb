package summary

import "math"

// PageRank ranks the nodes of a weighted directed graph given as a square
// weight matrix, where weights[i][j] is the weight of the edge i->j. Rows
// are normalised internally; a node without outgoing weight spreads its
// rank evenly. Iteration stops after iterations rounds or once no rank
// moves by more than 1e-9.
func PageRank(weights [][]float64, damping float64, iterations int) []float64 {
	n := len(weights)
	if n == 0 {
		return nil
	}

	outSum := make([]float64, n)
	for i, row := range weights {
		for _, w := range row {
			outSum[i] += w
		}
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < iterations; iter++ {
		var dangling float64
		for i := range weights {
			if outSum[i] <= 0 {
				dangling += rank[i]
			}
		}

		for j := range next {
			next[j] = (1-damping)/float64(n) + damping*dangling/float64(n)
		}
		for i, row := range weights {
			if outSum[i] <= 0 {
				continue
			}
			for j, w := range row {
				if w > 0 {
					next[j] += damping * rank[i] * w / outSum[i]
				}
			}
		}

		var delta float64
		for i := range rank {
			delta = math.Max(delta, math.Abs(next[i]-rank[i]))
			rank[i] = next[i]
		}
		if delta < 1e-9 {
			break
		}
	}
	return rank
}
