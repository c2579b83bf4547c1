package techniques

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

// kmeansResult is the best of several k-means++ runs.
type kmeansResult struct {
	Labels  []int
	Centers [][]float64
	Inertia float64
	Iters   int
}

// kmeans clusters points into k groups. Runs are seeded from seed so the
// result is reproducible; the run with the lowest inertia wins.
func kmeans(points [][]float64, k, inits, maxIter int, seed int64) kmeansResult {
	rng := rand.New(rand.NewSource(seed))
	best := kmeansResult{Inertia: math.Inf(1)}
	for run := 0; run < inits; run++ {
		r := kmeansOnce(points, k, maxIter, rng)
		if r.Inertia < best.Inertia {
			best = r
		}
	}
	return best
}

func kmeansOnce(points [][]float64, k, maxIter int, rng *rand.Rand) kmeansResult {
	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	iters := 0
	for iters < maxIter {
		iters++
		changed := false
		for i, p := range points {
			if c := nearest(p, centers); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster keeps its previous center.
				copy(next[c], centers[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}
		centers = next
	}
	inertia := 0.0
	for i, p := range points {
		d := floats.Distance(p, centers[labels[i]], 2)
		inertia += d * d
	}
	return kmeansResult{Labels: labels, Centers: centers, Inertia: inertia, Iters: iters}
}

// seedCenters picks initial centers with k-means++ weighting.
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centers = append(centers, append([]float64(nil), first...))
	d2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d := floats.Distance(p, centers[nearest(p, centers)], 2)
			d2[i] = d * d
			total += d2[i]
		}
		pick := rng.Intn(len(points))
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, w := range d2 {
				acc += w
				if acc >= target {
					pick = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), points[pick]...))
	}
	return centers
}

func nearest(p []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := floats.Distance(p, center, 2); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// standardize returns column-wise z-normalized copies of rows along with
// the column means and population standard deviations.
func standardize(rows [][]float64) (out [][]float64, means, sds []float64) {
	cols := len(rows[0])
	means = make([]float64, cols)
	sds = make([]float64, cols)
	col := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		means[j] = analysis.Mean(col)
		sds[j] = analysis.StdDev(col)
	}
	out = make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, cols)
		for j, v := range r {
			out[i][j] = (v - means[j]) / (sds[j] + 1e-10)
		}
	}
	return out, means, sds
}
