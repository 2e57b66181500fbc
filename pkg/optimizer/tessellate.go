package optimizer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// InitialCentroids returns k deterministic unit vectors in dim dimensions,
// used to seed a skill's clusters the first time it is optimized. Each
// centroid is drawn from an independent standard-normal distribution seeded
// solely by its index and dim (never wall-clock or package-level rand), then
// normalized to the unit sphere - normalized Gaussian coordinates are
// uniformly distributed over the sphere's surface, giving an even,
// reproducible spread without hand-rolling a geometric tessellation.
func InitialCentroids(k, dim int) [][]float32 {
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		src := rand.NewSource(int64(i+1)*9_973 + int64(dim)*104_729)
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

		raw := make([]float64, dim)
		var sumSquares float64
		for j := 0; j < dim; j++ {
			v := normal.Rand()
			raw[j] = v
			sumSquares += v * v
		}

		norm := math.Sqrt(sumSquares)
		if norm == 0 {
			norm = 1
		}

		vec := make([]float32, dim)
		for j, v := range raw {
			vec[j] = float32(v / norm)
		}
		centroids[i] = vec
	}
	return centroids
}
