package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// SkillConfig is the slice of a skill's configuration the optimizer reads.
// Pipeline and storage own the full Skill record; this is just the fields
// C7 needs to make a selection.
type SkillConfig struct {
	ID                         string
	ConfigurationCount         int
	SystemPromptCount          int
	ClusteringInterval         int64
	ExplorationTemperature     float64
	ReflectionMinRequestsPerArm int64
}

// Decision is what one Pick call returns: the cluster and arm chosen and
// the concrete parameters materialized from the arm.
type Decision struct {
	Cluster    *Cluster
	Arm        *Arm
	Params     MaterializedParams
}

// Optimizer selects a cluster and arm for one request and feeds evaluation
// rewards back into arm stats.
type Optimizer struct {
	store     Store
	generator Generator

	mu     sync.Mutex
	pulls  map[string]int64 // skillID -> pulls since last recluster
}

// New returns an Optimizer backed by store for persistence and generator
// for proposing new arms.
func New(store Store, generator Generator) *Optimizer {
	return &Optimizer{store: store, generator: generator, pulls: make(map[string]int64)}
}

// Pick resolves the cluster and arm for one request's embedding, lazily
// creating clusters (on the skill's first optimized request) and arms (on
// a cluster's first use), then materializes concrete parameters. variables
// and allowList feed system-prompt template rendering.
func (o *Optimizer) Pick(ctx context.Context, skill SkillConfig, vector []float32, variables map[string]string, allowList []string, rng *rand.Rand) (*Decision, error) {
	clusters, err := o.store.GetClusters(ctx, skill.ID)
	if err != nil {
		return nil, fmt.Errorf("optimizer: get clusters: %w", err)
	}

	if len(clusters) == 0 {
		clusters, err = o.bootstrapClusters(ctx, skill, len(vector))
		if err != nil {
			return nil, err
		}
	}

	cluster, err := SelectCluster(clusters, vector)
	if err != nil {
		return nil, fmt.Errorf("optimizer: select cluster: %w", err)
	}

	arms, err := o.store.GetArms(ctx, cluster.ID)
	if err != nil {
		return nil, fmt.Errorf("optimizer: get arms: %w", err)
	}

	if len(arms) == 0 {
		arms, err = o.bootstrapArms(ctx, skill, cluster)
		if err != nil {
			return nil, err
		}
	}

	arm, err := SelectArm(arms, skill.ExplorationTemperature, rng)
	if err != nil {
		return nil, fmt.Errorf("optimizer: select arm: %w", err)
	}

	o.recordPull(skill.ID)

	params := Materialize(arm, variables, allowList, rng)

	return &Decision{Cluster: cluster, Arm: arm, Params: params}, nil
}

// Reward applies one evaluation's reward to an arm's persisted stats.
func (o *Optimizer) Reward(ctx context.Context, armID string, reward float64) error {
	return o.store.UpdateArmStats(ctx, armID, reward)
}

// MaybeRecluster recomputes cluster centroids via one streaming k-means
// step if pulls against this cluster's skill have reached the skill's
// clustering_interval since the last recompute, then resets the counter.
func (o *Optimizer) MaybeRecluster(ctx context.Context, skill SkillConfig, clusters []*Cluster, recentEmbeddings [][]float32) error {
	o.mu.Lock()
	due := o.pulls[skill.ID] >= skill.ClusteringInterval && skill.ClusteringInterval > 0
	if due {
		o.pulls[skill.ID] = 0
	}
	o.mu.Unlock()

	if !due {
		return nil
	}
	return Recluster(clusters, recentEmbeddings, 0.1)
}

func (o *Optimizer) recordPull(skillID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pulls[skillID]++
}

func (o *Optimizer) bootstrapClusters(ctx context.Context, skill SkillConfig, dim int) ([]*Cluster, error) {
	n := skill.ConfigurationCount
	if n <= 0 {
		n = 1
	}

	centroids := InitialCentroids(n, dim)
	clusters := make([]*Cluster, n)
	for i, centroid := range centroids {
		clusters[i] = &Cluster{
			ID:       uuid.NewString(),
			SkillID:  skill.ID,
			Name:     fmt.Sprintf("%s-cluster-%d", skill.ID, i),
			Centroid: centroid,
		}
	}

	if err := o.store.CreateClusters(ctx, clusters); err != nil {
		return nil, fmt.Errorf("optimizer: create clusters: %w", err)
	}
	return clusters, nil
}

func (o *Optimizer) bootstrapArms(ctx context.Context, skill SkillConfig, cluster *Cluster) ([]*Arm, error) {
	if o.generator == nil {
		return nil, fmt.Errorf("optimizer: no arm generator configured, skill %q cluster %q has no arms", skill.ID, cluster.ID)
	}

	arms, err := o.generator.GenerateArms(ctx, skill.ID, cluster.ID, skill.ConfigurationCount, skill.SystemPromptCount)
	if err != nil {
		return nil, fmt.Errorf("optimizer: generate arms: %w", err)
	}
	if len(arms) == 0 {
		return nil, fmt.Errorf("optimizer: arm generator returned no arms for cluster %q", cluster.ID)
	}

	if err := o.store.CreateArms(ctx, arms); err != nil {
		return nil, fmt.Errorf("optimizer: create arms: %w", err)
	}
	return arms, nil
}
