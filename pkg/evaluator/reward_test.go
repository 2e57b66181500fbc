package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageReward_UniformWeightsAcrossMethods(t *testing.T) {
	results := []Result{{Score: 1.0}, {Score: 0.5}, {Score: 0.0}}
	assert.InDelta(t, 0.5, AverageReward(results), 1e-9)
}

func TestAverageReward_EmptyResultsReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, AverageReward(nil))
}

func TestAverageReward_ErroredResultStillCountsAtItsNeutralScore(t *testing.T) {
	results := []Result{{Score: 1.0}, {Score: 0.5, Error: "no timing available"}}
	assert.InDelta(t, 0.75, AverageReward(results), 1e-9)
}
