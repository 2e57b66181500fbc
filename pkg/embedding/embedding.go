// Package embedding defines the external Embedding Provider contract: a
// single embed(text) -> vector call whose dimensionality is provider-fixed
// and opaque to the gateway, plus the cosine-similarity helper both the
// cache's semantic mode and the optimizer's cluster selection share.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Provider computes an embedding vector for a piece of text. Implementations
// must return vectors of a single fixed dimensionality D for a given
// provider instance; callers that mix vectors across skills with different
// D must not compare them.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, in [-1, 1]. Returns 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding: dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
