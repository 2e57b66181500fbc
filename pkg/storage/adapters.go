package storage

import (
	"context"

	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
)

// OptimizerStore adapts a Connector to pkg/optimizer.Store's narrower,
// differently-named method set, so the optimizer package never needs to
// import pkg/storage (it only knows the interface it declares itself).
type OptimizerStore struct {
	Connector Connector
}

func (a OptimizerStore) GetClusters(ctx context.Context, skillID string) ([]*optimizer.Cluster, error) {
	return a.Connector.GetSkillOptimizationClusters(ctx, skillID)
}

func (a OptimizerStore) CreateClusters(ctx context.Context, clusters []*optimizer.Cluster) error {
	return a.Connector.CreateSkillOptimizationClusters(ctx, clusters)
}

func (a OptimizerStore) GetArms(ctx context.Context, clusterID string) ([]*optimizer.Arm, error) {
	return a.Connector.GetSkillOptimizationArms(ctx, clusterID)
}

func (a OptimizerStore) CreateArms(ctx context.Context, arms []*optimizer.Arm) error {
	return a.Connector.CreateSkillOptimizationArms(ctx, arms)
}

func (a OptimizerStore) UpdateArmStats(ctx context.Context, armID string, reward float64) error {
	return a.Connector.UpdateSkillOptimizationArmStats(ctx, armID, reward)
}

// ObservabilityStore adapts a Connector to pkg/observability.Store.
type ObservabilityStore struct {
	Connector Connector
}

func (a ObservabilityStore) CreateLog(ctx context.Context, record *observability.Record) error {
	return a.Connector.CreateLog(ctx, record)
}

func (a ObservabilityStore) UpdateLog(ctx context.Context, record *observability.Record) error {
	return a.Connector.UpdateLog(ctx, record)
}
