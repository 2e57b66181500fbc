package optimizer

import "math"

// Recluster performs one bounded streaming k-means step: each recent
// embedding is assigned to its nearest (highest cosine similarity)
// centroid, then that centroid is nudged toward the embedding by a fixed
// learning rate. This runs every clustering_interval pulls rather than a
// full batch re-fit, so cluster populations (and the arms attached to each
// cluster) are preserved - only the centroid each cluster owns moves, and a
// cluster's nearest-embedding assignment may shift it to represent a
// different region of the request space than it did before.
func Recluster(clusters []*Cluster, recentEmbeddings [][]float32, learningRate float64) error {
	if len(clusters) == 0 || len(recentEmbeddings) == 0 {
		return nil
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}

	for _, vector := range recentEmbeddings {
		nearest, err := SelectCluster(clusters, vector)
		if err != nil {
			return err
		}
		nudgeCentroid(nearest, vector, learningRate)
		nearest.TotalSteps++
	}

	return nil
}

func nudgeCentroid(c *Cluster, vector []float32, learningRate float64) {
	if len(c.Centroid) != len(vector) {
		return
	}
	for i, v := range vector {
		c.Centroid[i] += float32(learningRate) * (v - c.Centroid[i])
	}
	normalizeInPlace(c.Centroid)
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
