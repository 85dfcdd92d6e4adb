package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-organizer/pkg/logger"
)

func newTestEngine() *Engine {
	return NewEngine(logger.NewTestLogger(), 2)
}

func blob(rng *rand.Rand, cx, cy float64, count int, jitter float64) [][]float64 {
	points := make([][]float64, count)
	for i := range points {
		points[i] = []float64{
			cx + rng.NormFloat64()*jitter,
			cy + rng.NormFloat64()*jitter,
		}
	}
	return points
}

func TestCluster_TooFewPoints(t *testing.T) {
	e := newTestEngine()

	assert.Empty(t, e.Cluster(nil))
	labels := e.Cluster([][]float64{{1, 2}})
	assert.Equal(t, []int{Noise}, labels)
}

func TestCluster_TwoTightPairs(t *testing.T) {
	e := newTestEngine()

	points := [][]float64{
		{0, 0}, {0.01, 0},
		{100, 100}, {100.01, 100},
	}
	labels := e.Cluster(points)

	require.Len(t, labels, 4)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
	assert.NotEqual(t, Noise, labels[0])
	assert.NotEqual(t, Noise, labels[2])
}

func TestCluster_SeparatesTwoBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := append(
		blob(rng, 0, 0, 15, 0.05),
		blob(rng, 50, 50, 15, 0.05)...,
	)

	labels := newTestEngine().Cluster(points)

	require.Len(t, labels, 30)
	first := labels[0]
	second := labels[15]
	assert.NotEqual(t, Noise, first)
	assert.NotEqual(t, Noise, second)
	assert.NotEqual(t, first, second)
	for i := 1; i < 15; i++ {
		assert.Equal(t, first, labels[i])
	}
	for i := 16; i < 30; i++ {
		assert.Equal(t, second, labels[i])
	}
}

func TestCluster_IdsAreRenumberedByFirstPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	points := append(
		blob(rng, 0, 0, 10, 0.05),
		blob(rng, 50, 50, 10, 0.05)...,
	)

	labels := newTestEngine().Cluster(points)

	// the cluster containing point 0 gets id 0
	assert.Equal(t, 0, labels[0])
	assert.Equal(t, 1, labels[10])
}

func TestCluster_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	points := append(
		blob(rng, 0, 0, 12, 0.3),
		blob(rng, 10, 10, 12, 0.3)...,
	)

	first := newTestEngine().Cluster(points)
	second := newTestEngine().Cluster(points)
	assert.Equal(t, first, second)
}

func TestCluster_DuplicatePoints(t *testing.T) {
	points := [][]float64{
		{1, 1}, {1, 1}, {1, 1},
		{9, 9}, {9, 9}, {9, 9},
	}

	labels := newTestEngine().Cluster(points)

	require.Len(t, labels, 6)
	assert.NotEqual(t, Noise, labels[0])
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.NotEqual(t, labels[0], labels[3])
}

func TestCluster_MinClusterSizeRespected(t *testing.T) {
	e := NewEngine(logger.NewTestLogger(), 3)

	rng := rand.New(rand.NewSource(10))
	points := append(
		blob(rng, 0, 0, 6, 0.05),
		blob(rng, 100, 100, 6, 0.05)...,
	)
	// a far-away pair is below the minimum cluster size
	points = append(points, []float64{500, 500}, []float64{500.01, 500})

	labels := e.Cluster(points)

	require.Len(t, labels, 14)
	assert.NotEqual(t, Noise, labels[0])
	assert.NotEqual(t, Noise, labels[6])
	assert.NotEqual(t, labels[0], labels[6])
	assert.Equal(t, Noise, labels[12])
	assert.Equal(t, Noise, labels[13])
}
