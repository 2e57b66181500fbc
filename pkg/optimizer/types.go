// Package optimizer implements per-skill arm selection: embedding-similarity
// cluster (partition) selection, Thompson Sampling arm selection shaped by
// an exploration temperature, parameter materialization from an arm's
// range bundle, and the atomic reward update that feeds back from the
// evaluator. Clusters and arms are persisted through the Store
// collaborator; new arms are proposed through the Generator collaborator -
// neither is implemented here, mirroring how spec.md treats both as
// external interfaces the core depends on rather than owns.
package optimizer

import (
	"context"
	"math"
)

// Cluster is one partition of a skill's request space.
type Cluster struct {
	ID         string
	SkillID    string
	Name       string
	Centroid   []float32
	TotalSteps int64
}

// ArmParams is the range bundle and identity an Arm was generated with.
// Continuous fields are materialized per request by drawing uniformly from
// [Min, Max]; ModelID and SystemPromptTemplate are fixed per arm.
type ArmParams struct {
	ModelID              string
	SystemPromptTemplate string

	TemperatureMin, TemperatureMax       float64
	TopPMin, TopPMax                     float64
	TopKMin, TopKMax                     float64
	FrequencyPenaltyMin, FrequencyPenaltyMax float64
	PresencePenaltyMin, PresencePenaltyMax   float64
	ThinkingMin, ThinkingMax             float64
}

// ArmStats is the running reward aggregate spec.md's invariants constrain:
// 0 <= Mean <= 1, N >= 0, TotalReward <= N.
type ArmStats struct {
	N           int64
	Mean        float64
	N2          float64 // running sum of squared rewards, for variance
	TotalReward float64
}

// Variance returns the population variance (N2/N - Mean^2) of rewards
// pulled so far, 0 if fewer than two pulls have been recorded.
func (s ArmStats) Variance() float64 {
	if s.N < 2 {
		return 0
	}
	n := float64(s.N)
	v := s.N2/n - s.Mean*s.Mean
	if v < 0 {
		return 0
	}
	return v
}

// Arm is one selectable configuration within a cluster.
type Arm struct {
	ID        string
	ClusterID string
	Params    ArmParams
	Stats     ArmStats
}

// MaterializedParams is one request's drawn parameter values, ready to
// merge into a Target Configuration.
type MaterializedParams struct {
	ModelID          string
	SystemPrompt     string
	Temperature      float64
	TopP             float64
	TopK             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	ReasoningEffort  string // "", "minimal", "low", "medium", "high"
}

// Generator proposes new arms for a cluster. Failure is recoverable: the
// caller leaves the skill unoptimized for this request and retries on a
// later one.
type Generator interface {
	GenerateArms(ctx context.Context, skillID, clusterID string, configurationCount, systemPromptCount int) ([]*Arm, error)
}

// Store persists clusters and arms. Implemented by the storage connector;
// optimizer depends only on this narrow slice of it.
type Store interface {
	GetClusters(ctx context.Context, skillID string) ([]*Cluster, error)
	CreateClusters(ctx context.Context, clusters []*Cluster) error
	GetArms(ctx context.Context, clusterID string) ([]*Arm, error)
	CreateArms(ctx context.Context, arms []*Arm) error
	UpdateArmStats(ctx context.Context, armID string, reward float64) error
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
