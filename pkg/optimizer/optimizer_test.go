package optimizer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGenerator struct {
	arms []*Arm
}

func (g *fixedGenerator) GenerateArms(ctx context.Context, skillID, clusterID string, configurationCount, systemPromptCount int) ([]*Arm, error) {
	out := make([]*Arm, len(g.arms))
	for i, a := range g.arms {
		cp := *a
		cp.ClusterID = clusterID
		out[i] = &cp
	}
	return out, nil
}

func TestOptimizer_Pick_BootstrapsClustersAndArmsOnFirstUse(t *testing.T) {
	store := NewMemoryStore()
	gen := &fixedGenerator{arms: []*Arm{
		{ID: "arm-1", Params: ArmParams{ModelID: "gpt-4", TemperatureMin: 0.5, TemperatureMax: 0.5}},
	}}
	opt := New(store, gen)

	skill := SkillConfig{ID: "skill-1", ConfigurationCount: 2, ExplorationTemperature: 1.0}
	decision, err := opt.Pick(context.Background(), skill, []float32{1, 0, 0}, nil, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.NotNil(t, decision.Cluster)
	assert.Equal(t, "arm-1", decision.Arm.ID)
	assert.Equal(t, 0.5, decision.Params.Temperature)

	clusters, err := store.GetClusters(context.Background(), "skill-1")
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestOptimizer_Pick_ReusesExistingClustersOnSecondCall(t *testing.T) {
	store := NewMemoryStore()
	gen := &fixedGenerator{arms: []*Arm{{ID: "arm-1"}}}
	opt := New(store, gen)
	skill := SkillConfig{ID: "skill-1", ConfigurationCount: 3, ExplorationTemperature: 1.0}

	_, err := opt.Pick(context.Background(), skill, []float32{1, 0}, nil, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = opt.Pick(context.Background(), skill, []float32{0, 1}, nil, nil, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	clusters, err := store.GetClusters(context.Background(), "skill-1")
	require.NoError(t, err)
	assert.Len(t, clusters, 3) // not re-bootstrapped to 6
}

func TestOptimizer_Pick_NoGeneratorConfiguredErrors(t *testing.T) {
	store := NewMemoryStore()
	opt := New(store, nil)
	skill := SkillConfig{ID: "skill-1", ConfigurationCount: 1}
	_, err := opt.Pick(context.Background(), skill, []float32{1, 0}, nil, nil, nil)
	require.Error(t, err)
}

func TestOptimizer_Reward_UpdatesArmStats(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateClusters(context.Background(), []*Cluster{{ID: "c1", SkillID: "s1", Centroid: []float32{1, 0}}}))
	require.NoError(t, store.CreateArms(context.Background(), []*Arm{{ID: "arm-1", ClusterID: "c1"}}))

	opt := New(store, nil)
	require.NoError(t, opt.Reward(context.Background(), "arm-1", 0.8))

	arms, err := store.GetArms(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, arms, 1)
	assert.Equal(t, int64(1), arms[0].Stats.N)
	assert.Equal(t, 0.8, arms[0].Stats.TotalReward)
	assert.Equal(t, 0.8, arms[0].Stats.Mean)
}

func TestApplyReward_AccumulatesAcrossMultiplePulls(t *testing.T) {
	stats := ArmStats{}
	stats = ApplyReward(stats, 1.0)
	stats = ApplyReward(stats, 0.0)
	assert.Equal(t, int64(2), stats.N)
	assert.Equal(t, 1.0, stats.TotalReward)
	assert.Equal(t, 0.5, stats.Mean)
	assert.Equal(t, 1.0, stats.N2)
}
