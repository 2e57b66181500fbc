package optimizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCluster_PicksHighestCosineSimilarity(t *testing.T) {
	clusters := []*Cluster{
		{ID: "a", Centroid: []float32{1, 0, 0}},
		{ID: "b", Centroid: []float32{0, 1, 0}},
	}
	chosen, err := SelectCluster(clusters, []float32{0.9, 0.1, 0})
	require.NoError(t, err)
	assert.Equal(t, "a", chosen.ID)
}

func TestSelectCluster_TiesBreakByLowestTotalSteps(t *testing.T) {
	clusters := []*Cluster{
		{ID: "a", Centroid: []float32{1, 0}, TotalSteps: 10},
		{ID: "b", Centroid: []float32{1, 0}, TotalSteps: 2},
	}
	chosen, err := SelectCluster(clusters, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, "b", chosen.ID)
}

func TestSelectArm_FavorsHigherMeanRewardOverManyDraws(t *testing.T) {
	good := &Arm{ID: "good", Stats: ArmStats{N: 100, TotalReward: 90, Mean: 0.9}}
	bad := &Arm{ID: "bad", Stats: ArmStats{N: 100, TotalReward: 10, Mean: 0.1}}

	wins := map[string]int{}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		arm, err := SelectArm([]*Arm{good, bad}, 1.0, rng)
		require.NoError(t, err)
		wins[arm.ID]++
	}

	assert.Greater(t, wins["good"], wins["bad"])
}

func TestSelectArm_HighTemperatureFlattensTowardUniform(t *testing.T) {
	good := &Arm{ID: "good", Stats: ArmStats{N: 100, TotalReward: 90, Mean: 0.9}}
	bad := &Arm{ID: "bad", Stats: ArmStats{N: 100, TotalReward: 10, Mean: 0.1}}

	wins := map[string]int{}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		arm, err := SelectArm([]*Arm{good, bad}, 50.0, rng)
		require.NoError(t, err)
		wins[arm.ID]++
	}

	// flattened exploration should let the weaker arm win a meaningfully
	// larger share than it would at low temperature
	assert.Greater(t, wins["bad"], 20)
}

func TestSelectArm_NoArmsErrors(t *testing.T) {
	_, err := SelectArm(nil, 1.0, nil)
	require.Error(t, err)
}
