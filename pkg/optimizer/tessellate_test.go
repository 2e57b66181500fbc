package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialCentroids_ReturnsUnitVectors(t *testing.T) {
	centroids := InitialCentroids(4, 8)
	require_len := 4
	assert.Len(t, centroids, require_len)
	for _, c := range centroids {
		var sumSquares float64
		for _, v := range c {
			sumSquares += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
	}
}

func TestInitialCentroids_DeterministicAcrossCalls(t *testing.T) {
	a := InitialCentroids(3, 5)
	b := InitialCentroids(3, 5)
	assert.Equal(t, a, b)
}

func TestRecluster_NudgesCentroidTowardAssignedEmbeddings(t *testing.T) {
	clusters := []*Cluster{{ID: "a", Centroid: []float32{1, 0}}}
	err := Recluster(clusters, [][]float32{{0, 1}, {0, 1}, {0, 1}}, 0.5)
	assert := assert.New(t)
	assert.NoError(err)
	assert.Greater(clusters[0].Centroid[1], float32(0.5))
	assert.EqualValues(3, clusters[0].TotalSteps)
}
