// Package reduce projects embedding vectors into low-dimensional spaces using
// a cosine-based manifold embedding: a fuzzy k-nearest-neighbor graph is
// optimized into the target space by stochastic gradient descent. Parameters
// adapt to small sample counts so tiny batches stay numerically stable, and a
// fixed seed keeps results reproducible within a run.
package reduce

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/feichai0017/doc-organizer/pkg/logger"
)

const (
	defaultSeed = 42

	maxNeighbors  = 15
	maxComponents = 5

	// Curve coefficients fitted for spread 1 and minimum distance 0.
	curveA = 1.8956
	curveB = 0.8006

	nEpochs            = 500
	negativeSampleRate = 5
	gradientClip       = 4.0
	initScale          = 10.0
)

// Reducer computes the clustering-space and visualization-space projections.
type Reducer struct {
	logger logger.Logger
	seed   int64
}

func NewReducer(log logger.Logger) *Reducer {
	return &Reducer{
		logger: log,
		seed:   defaultSeed,
	}
}

// Project returns a clustering-oriented projection and a fixed 2-D
// visualization projection for n >= 2 input vectors. Batches of 3 or fewer
// skip manifold reduction entirely: the clustering projection is the raw
// embedding and the visualization is its first two coordinates.
func (r *Reducer) Project(embeddings [][]float64) (clusterSpace, vizSpace [][]float64) {
	n := len(embeddings)
	if n <= 3 {
		return embeddings, firstTwoCoords(embeddings)
	}

	nNeighbors := n - 1
	if nNeighbors > maxNeighbors {
		nNeighbors = maxNeighbors
	}

	clusterDim := n - 1
	if n > 10 {
		clusterDim = n - 2
	}
	if clusterDim > maxComponents {
		clusterDim = maxComponents
	}

	spectral := n >= maxNeighbors

	r.logger.Debug("manifold reduction parameters",
		logger.Int("samples", n),
		logger.Int("neighbors", nNeighbors),
		logger.Int("clusterDim", clusterDim),
		logger.Bool("spectralInit", spectral),
	)

	graph := buildFuzzyGraph(embeddings, nNeighbors)
	clusterSpace = r.embedGraph(graph, n, clusterDim, spectral)
	vizSpace = r.embedGraph(graph, n, 2, spectral)
	return clusterSpace, vizSpace
}

func firstTwoCoords(embeddings [][]float64) [][]float64 {
	out := make([][]float64, len(embeddings))
	for i, vec := range embeddings {
		coords := make([]float64, 2)
		copy(coords, vec) // pads with zero when dimensionality < 2
		out[i] = coords
	}
	return out
}

type edge struct {
	from, to int
	weight   float64
}

// buildFuzzyGraph constructs the symmetrized fuzzy neighborhood graph under
// cosine distance.
func buildFuzzyGraph(embeddings [][]float64, nNeighbors int) []edge {
	n := len(embeddings)

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			d := cosineDistance(embeddings[i], embeddings[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	type weighted map[int]float64
	directed := make([]weighted, n)

	order := make([]int, n)
	for i := 0; i < n; i++ {
		for j := range order {
			order[j] = j
		}
		sort.Slice(order, func(a, b int) bool { return dist[i][order[a]] < dist[i][order[b]] })

		neighbors := make([]int, 0, nNeighbors)
		for _, j := range order {
			if j == i {
				continue
			}
			neighbors = append(neighbors, j)
			if len(neighbors) == nNeighbors {
				break
			}
		}

		rho := dist[i][neighbors[0]]
		sigma := smoothKNNDistance(dist[i], neighbors, rho)

		directed[i] = make(weighted, len(neighbors))
		for _, j := range neighbors {
			d := dist[i][j] - rho
			if d < 0 {
				d = 0
			}
			directed[i][j] = math.Exp(-d / sigma)
		}
	}

	// Fuzzy union: w = a + b - a*b.
	edges := make([]edge, 0, n*nNeighbors)
	for i := 0; i < n; i++ {
		for j, a := range directed[i] {
			if j < i {
				continue // handled from the smaller index
			}
			b := directed[j][i]
			w := a + b - a*b
			if w > 0 {
				edges = append(edges, edge{from: i, to: j, weight: w})
			}
		}
	}

	// Map iteration above yields edges in arbitrary order; the SGD layout
	// consumes them sequentially, so a canonical order keeps the seeded
	// optimization reproducible.
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].from != edges[b].from {
			return edges[a].from < edges[b].from
		}
		return edges[a].to < edges[b].to
	})
	return edges
}

// smoothKNNDistance binary-searches the kernel bandwidth so the effective
// neighborhood size matches log2(k).
func smoothKNNDistance(dists []float64, neighbors []int, rho float64) float64 {
	target := math.Log2(float64(len(neighbors)))
	lo, hi, mid := 0.0, math.Inf(1), 1.0

	for iter := 0; iter < 64; iter++ {
		sum := 0.0
		for _, j := range neighbors {
			d := dists[j] - rho
			if d <= 0 {
				sum++
				continue
			}
			sum += math.Exp(-d / mid)
		}

		if math.Abs(sum-target) < 1e-5 {
			break
		}
		if sum > target {
			hi = mid
			mid = (lo + hi) / 2
		} else {
			lo = mid
			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}
	}

	if mid < 1e-8 {
		mid = 1e-8
	}
	return mid
}

func cosineDistance(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	na := math.Sqrt(floats.Dot(a, a))
	nb := math.Sqrt(floats.Dot(b, b))
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}

// embedGraph lays the fuzzy graph out in dim dimensions by SGD over
// attractive and repulsive forces.
func (r *Reducer) embedGraph(edges []edge, n, dim int, spectral bool) [][]float64 {
	rng := rand.New(rand.NewSource(r.seed))

	var layout [][]float64
	if spectral {
		layout = spectralInit(edges, n, dim)
	}
	if layout == nil {
		layout = randomInit(rng, n, dim)
	}

	maxWeight := 0.0
	for _, e := range edges {
		if e.weight > maxWeight {
			maxWeight = e.weight
		}
	}
	if maxWeight == 0 {
		return layout
	}

	epochsPerSample := make([]float64, len(edges))
	nextSample := make([]float64, len(edges))
	for i, e := range edges {
		epochsPerSample[i] = maxWeight / e.weight
		nextSample[i] = epochsPerSample[i]
	}

	for epoch := 1; epoch <= nEpochs; epoch++ {
		alpha := 1.0 - float64(epoch)/float64(nEpochs)
		if alpha < 1e-4 {
			alpha = 1e-4
		}

		for i, e := range edges {
			if nextSample[i] > float64(epoch) {
				continue
			}
			nextSample[i] += epochsPerSample[i]

			attract(layout[e.from], layout[e.to], alpha)
			for s := 0; s < negativeSampleRate; s++ {
				k := rng.Intn(n)
				if k == e.from || k == e.to {
					continue
				}
				repel(layout[e.from], layout[k], alpha)
			}
		}
	}

	return layout
}

func attract(a, b []float64, alpha float64) {
	d2 := squaredDistance(a, b)
	if d2 <= 0 {
		return
	}
	coeff := -2 * curveA * curveB * math.Pow(d2, curveB-1) / (1 + curveA*math.Pow(d2, curveB))
	for k := range a {
		g := clip(coeff * (a[k] - b[k]))
		a[k] += alpha * g
		b[k] -= alpha * g
	}
}

func repel(a, b []float64, alpha float64) {
	d2 := squaredDistance(a, b)
	coeff := 2 * curveB / ((0.001 + d2) * (1 + curveA*math.Pow(d2, curveB)))
	for k := range a {
		var g float64
		if coeff > 0 {
			g = clip(coeff * (a[k] - b[k]))
		} else {
			g = gradientClip
		}
		a[k] += alpha * g
	}
}

func clip(v float64) float64 {
	if v > gradientClip {
		return gradientClip
	}
	if v < -gradientClip {
		return -gradientClip
	}
	return v
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for k := range a {
		diff := a[k] - b[k]
		sum += diff * diff
	}
	return sum
}

func randomInit(rng *rand.Rand, n, dim int) [][]float64 {
	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = make([]float64, dim)
		for k := range layout[i] {
			layout[i][k] = (rng.Float64()*2 - 1) * initScale
		}
	}
	return layout
}

// spectralInit seeds the layout from the eigenvectors of the symmetric
// normalized graph Laplacian. Returns nil when the decomposition fails, in
// which case the caller falls back to random initialization.
func spectralInit(edges []edge, n, dim int) [][]float64 {
	adj := mat.NewSymDense(n, nil)
	for _, e := range edges {
		adj.SetSym(e.from, e.to, e.weight)
	}

	degree := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degree[i] += adj.At(i, j)
		}
		if degree[i] <= 0 {
			return nil
		}
	}

	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -adj.At(i, j) / math.Sqrt(degree[i]*degree[j])
			if i == j {
				v = 1 + v
			}
			lap.SetSym(i, j, v)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, true) {
		return nil
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Skip the trivial constant eigenvector; eigenvalues come back ascending.
	if n < dim+1 {
		return nil
	}
	layout := make([][]float64, n)
	maxAbs := 0.0
	for i := 0; i < n; i++ {
		layout[i] = make([]float64, dim)
		for k := 0; k < dim; k++ {
			v := vectors.At(i, k+1)
			layout[i][k] = v
			if math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
			}
		}
	}
	if maxAbs == 0 {
		return nil
	}
	scale := initScale / maxAbs
	for i := range layout {
		for k := range layout[i] {
			layout[i][k] *= scale
		}
	}
	return layout
}
