package optimizer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/relaymind/relaymind/pkg/embedding"
)

// SelectCluster picks the cluster with maximum cosine similarity to vector,
// breaking ties by lowest TotalSteps (the least-explored partition wins a
// tie, keeping exploration balanced across clusters).
func SelectCluster(clusters []*Cluster, vector []float32) (*Cluster, error) {
	if len(clusters) == 0 {
		return nil, fmt.Errorf("optimizer: no clusters to select from")
	}

	best := clusters[0]
	bestScore, err := embedding.CosineSimilarity(vector, best.Centroid)
	if err != nil {
		return nil, err
	}

	for _, c := range clusters[1:] {
		score, err := embedding.CosineSimilarity(vector, c.Centroid)
		if err != nil {
			return nil, err
		}
		if score > bestScore || (score == bestScore && c.TotalSteps < best.TotalSteps) {
			best, bestScore = c, score
		}
	}

	return best, nil
}

// SelectArm runs Thompson Sampling over a cluster's arms, shaping the Beta
// distribution's parameters (not the drawn sample) by the skill's
// exploration temperature: alpha0 = successes+1, beta0 = failures+1, then
// alpha = (alpha0-1)/T + 1, beta = (beta0-1)/T + 1. T > 1 flattens the
// distribution (more exploration); T < 1 sharpens it (more exploitation).
// rng may be nil for a non-deterministic draw, or a seeded *rand.Rand for
// reproducible tests.
func SelectArm(arms []*Arm, temperature float64, rng *rand.Rand) (*Arm, error) {
	if len(arms) == 0 {
		return nil, fmt.Errorf("optimizer: no arms to select from")
	}
	if temperature <= 0 {
		temperature = 1.0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	var best *Arm
	var bestSample float64

	for _, arm := range arms {
		successes := arm.Stats.TotalReward
		failures := float64(arm.Stats.N) - arm.Stats.TotalReward
		alpha0 := successes + 1
		beta0 := failures + 1

		alpha := (alpha0-1)/temperature + 1
		beta := (beta0-1)/temperature + 1

		dist := distuv.Beta{Alpha: alpha, Beta: beta, Src: rng}
		sample := dist.Rand()

		if best == nil || sample > bestSample {
			best, bestSample = arm, sample
		}
	}

	return best, nil
}
