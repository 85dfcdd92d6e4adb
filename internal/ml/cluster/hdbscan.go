// Package cluster partitions points into dense groups plus an explicit noise
// group using hierarchical density-based clustering: a minimum spanning tree
// over mutual-reachability distances is condensed into a cluster tree, and
// clusters are selected by excess of mass. No cluster count is required and
// the result is deterministic for identical input.
package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/feichai0017/doc-organizer/pkg/logger"
)

// Noise marks points not dense enough to join any cluster.
const Noise = -1

const (
	defaultMinClusterSize   = 2
	defaultSelectionEpsilon = 0.5

	// lambdaCap substitutes for 1/0 when duplicate points produce
	// zero-distance merges.
	lambdaCap = 1e12
)

// Engine runs density-based clustering under Euclidean distance.
type Engine struct {
	logger           logger.Logger
	minClusterSize   int
	selectionEpsilon float64
}

func NewEngine(log logger.Logger, minClusterSize int) *Engine {
	if minClusterSize < 2 {
		minClusterSize = defaultMinClusterSize
	}
	return &Engine{
		logger:           log,
		minClusterSize:   minClusterSize,
		selectionEpsilon: defaultSelectionEpsilon,
	}
}

// Cluster returns one cluster id per input point; Noise marks unassigned
// points. Ids are renumbered 0..K-1 ordered by each cluster's first point.
func (e *Engine) Cluster(points [][]float64) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n < e.minClusterSize {
		return labels
	}

	mst := minimumSpanningTree(points, e.minClusterSize)
	tree := buildHierarchy(mst, n)
	clusters := condenseTree(tree, n, e.minClusterSize)
	selected := selectClusters(clusters, e.selectionEpsilon)

	e.assignLabels(labels, clusters, selected)
	return labels
}

type mstEdge struct {
	a, b int
	dist float64
}

// minimumSpanningTree builds Prim's MST over mutual-reachability distances:
// max(core(a), core(b), d(a, b)) where core is the distance to the
// minClusterSize-th nearest neighbor counting the point itself.
func minimumSpanningTree(points [][]float64, minClusterSize int) []mstEdge {
	n := len(points)

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			d := euclidean(points[i], points[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	core := make([]float64, n)
	buf := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for j := 0; j < n; j++ {
			if j != i {
				buf = append(buf, dist[i][j])
			}
		}
		sort.Float64s(buf)
		core[i] = buf[minClusterSize-2]
	}

	reach := func(a, b int) float64 {
		d := dist[a][b]
		if core[a] > d {
			d = core[a]
		}
		if core[b] > d {
			d = core[b]
		}
		return d
	}

	inTree := make([]bool, n)
	best := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next := -1
		for v := 0; v < n; v++ {
			if inTree[v] {
				continue
			}
			if r := reach(current, v); r < best[v] {
				best[v] = r
				bestFrom[v] = current
			}
			if next == -1 || best[v] < best[next] {
				next = v
			}
		}
		edges = append(edges, mstEdge{a: bestFrom[next], b: next, dist: best[next]})
		inTree[next] = true
		current = next
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].dist < edges[j].dist })
	return edges
}

// hierarchyNode is one merge in the single-linkage dendrogram. Leaves occupy
// ids 0..n-1; internal nodes n..2n-2 with the root last.
type hierarchyNode struct {
	left, right int
	dist        float64
	size        int
}

func buildHierarchy(edges []mstEdge, n int) []hierarchyNode {
	nodes := make([]hierarchyNode, 2*n-1)
	for i := 0; i < n; i++ {
		nodes[i].size = 1
	}

	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	next := n
	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)
		nodes[next] = hierarchyNode{
			left:  ra,
			right: rb,
			dist:  e.dist,
			size:  nodes[ra].size + nodes[rb].size,
		}
		parent[ra] = next
		parent[rb] = next
		next++
	}
	return nodes
}

// condensedCluster is one node of the condensed cluster tree.
type condensedCluster struct {
	parent      int // index into the cluster slice, -1 for the root
	birthLambda float64
	children    []int
	points      []int // points that fell out of this cluster, with lambdas
	lambdas     []float64
	stability   float64
	minPoint    int
}

// condenseTree walks the dendrogram top-down, keeping only splits where both
// sides reach minClusterSize. Everything else falls out of its cluster as the
// density threshold passes it.
func condenseTree(nodes []hierarchyNode, n, minClusterSize int) []condensedCluster {
	root := len(nodes) - 1
	clusters := []condensedCluster{{parent: -1, birthLambda: 0, minPoint: n}}

	var leavesOf func(node int, out *[]int)
	leavesOf = func(node int, out *[]int) {
		if node < n {
			*out = append(*out, node)
			return
		}
		leavesOf(nodes[node].left, out)
		leavesOf(nodes[node].right, out)
	}

	fallOut := func(cluster, node int, lambda float64) {
		var pts []int
		leavesOf(node, &pts)
		c := &clusters[cluster]
		for _, p := range pts {
			c.points = append(c.points, p)
			c.lambdas = append(c.lambdas, lambda)
			c.stability += lambda - c.birthLambda
			if p < c.minPoint {
				c.minPoint = p
			}
		}
	}

	var walk func(node, cluster int)
	walk = func(node, cluster int) {
		if node < n {
			// Only reachable when the whole hierarchy is a single point,
			// which the caller has already excluded.
			return
		}

		left, right := nodes[node].left, nodes[node].right
		lambda := lambdaCap
		if nodes[node].dist > 0 {
			lambda = 1 / nodes[node].dist
		}

		leftBig := nodes[left].size >= minClusterSize
		rightBig := nodes[right].size >= minClusterSize

		switch {
		case leftBig && rightBig:
			// True split: both sides persist as new clusters.
			c := &clusters[cluster]
			c.stability += float64(nodes[left].size+nodes[right].size) * (lambda - c.birthLambda)

			for _, child := range []int{left, right} {
				clusters = append(clusters, condensedCluster{
					parent:      cluster,
					birthLambda: lambda,
					minPoint:    n,
				})
				id := len(clusters) - 1
				clusters[cluster].children = append(clusters[cluster].children, id)
				walk(child, id)
			}
		case leftBig:
			fallOut(cluster, right, lambda)
			walk(left, cluster)
		case rightBig:
			fallOut(cluster, left, lambda)
			walk(right, cluster)
		default:
			fallOut(cluster, left, lambda)
			fallOut(cluster, right, lambda)
		}
	}

	walk(root, 0)
	return clusters
}

// selectClusters picks final clusters by excess of mass, then loosens the
// result with the selection epsilon: clusters born closer than epsilon in
// distance terms are merged into their enclosing ancestor.
func selectClusters(clusters []condensedCluster, epsilon float64) []bool {
	m := len(clusters)
	selected := make([]bool, m)
	subtree := make([]float64, m)

	var deselect func(int)
	deselect = func(c int) {
		for _, child := range clusters[c].children {
			selected[child] = false
			deselect(child)
		}
	}

	// Children are created after parents, so reverse order is bottom-up.
	for c := m - 1; c >= 1; c-- {
		if len(clusters[c].children) == 0 {
			selected[c] = true
			subtree[c] = clusters[c].stability
			continue
		}
		childSum := 0.0
		for _, child := range clusters[c].children {
			childSum += subtree[child]
		}
		if clusters[c].stability > childSum {
			selected[c] = true
			deselect(c)
			subtree[c] = clusters[c].stability
		} else {
			subtree[c] = childSum
		}
	}

	if epsilon > 0 {
		applySelectionEpsilon(clusters, selected, epsilon)
	}
	return selected
}

func applySelectionEpsilon(clusters []condensedCluster, selected []bool, epsilon float64) {
	var deselect func(int)
	deselect = func(c int) {
		selected[c] = false
		for _, child := range clusters[c].children {
			deselect(child)
		}
	}

	for c := range clusters {
		if !selected[c] || clusters[c].birthLambda <= 0 {
			continue
		}
		if 1/clusters[c].birthLambda >= epsilon {
			continue
		}
		// Too fine-grained: climb to the first ancestor born at a distance of
		// at least epsilon, stopping below the root.
		target := c
		for clusters[target].parent > 0 {
			parent := clusters[target].parent
			target = parent
			if clusters[target].birthLambda <= 0 || 1/clusters[target].birthLambda >= epsilon {
				break
			}
		}
		if target != c {
			deselect(target)
			selected[target] = true
		}
	}
}

func (e *Engine) assignLabels(labels []int, clusters []condensedCluster, selected []bool) {
	// Deterministic ids ordered by each selected cluster's first point.
	type sc struct{ id, minPoint int }
	var order []sc
	for c := range clusters {
		if selected[c] {
			order = append(order, sc{id: c, minPoint: lowestPoint(clusters, c)})
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].minPoint < order[j].minPoint })

	ids := make(map[int]int, len(order))
	for i, s := range order {
		ids[s.id] = i
	}

	for c := range clusters {
		owner := c
		for owner != -1 && !selected[owner] {
			owner = clusters[owner].parent
		}
		if owner == -1 {
			continue
		}
		id := ids[owner]
		for _, p := range clusters[c].points {
			labels[p] = id
		}
	}

	e.logger.Debug("clustering complete",
		logger.Int("clusters", len(order)),
		logger.Int("points", len(labels)),
	)
}

func lowestPoint(clusters []condensedCluster, c int) int {
	min := clusters[c].minPoint
	for _, child := range clusters[c].children {
		if v := lowestPoint(clusters, child); v < min {
			min = v
		}
	}
	return min
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
