package cluster

// densityLabels runs a density pass over a precomputed distance matrix with
// minimum cluster size 1: every point reachable through a chain of neighbors
// within eps shares a label, and isolated points become singleton clusters
// instead of noise. With min_samples = 1 this is exactly the connected
// components of the eps-neighborhood graph.
func densityLabels(dist [][]float64, eps float64) []int {
	n := len(dist)
	labels := make([]int, n)

	for i := range labels {
		labels[i] = -1
	}

	next := 0

	for i := 0; i < n; i++ {
		if labels[i] >= 0 {
			continue
		}

		labels[i] = next
		queue := []int{i}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			for j := 0; j < n; j++ {
				if labels[j] >= 0 || dist[cur][j] > eps {
					continue
				}

				labels[j] = next
				queue = append(queue, j)
			}
		}

		next++
	}

	return labels
}
