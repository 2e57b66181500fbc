package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
)

func newTestSQLiteConnector(t *testing.T) *SQLiteConnector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relaymind.db")
	c, err := NewSQLiteConnector(SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteConnector_ImplementsConnector(t *testing.T) {
	var _ Connector = (*SQLiteConnector)(nil)
}

func TestSQLiteConnector_ClustersAndArmsRoundTrip(t *testing.T) {
	c := newTestSQLiteConnector(t)
	ctx := context.Background()

	require.NoError(t, c.CreateSkillOptimizationClusters(ctx, []*optimizer.Cluster{
		{SkillID: "skill-1", Name: "default", Centroid: []float32{0.5, 0.5}},
	}))

	clusters, err := c.GetSkillOptimizationClusters(ctx, "skill-1")
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []float32{0.5, 0.5}, clusters[0].Centroid)

	require.NoError(t, c.CreateSkillOptimizationArms(ctx, []*optimizer.Arm{
		{ClusterID: clusters[0].ID, Params: optimizer.ArmParams{ModelID: "gpt-5", TemperatureMax: 1}},
	}))

	arms, err := c.GetSkillOptimizationArms(ctx, clusters[0].ID)
	require.NoError(t, err)
	require.Len(t, arms, 1)
	assert.Equal(t, "gpt-5", arms[0].Params.ModelID)

	require.NoError(t, c.UpdateSkillOptimizationArmStats(ctx, arms[0].ID, 1.0))
	require.NoError(t, c.UpdateSkillOptimizationArmStats(ctx, arms[0].ID, 0.0))

	updated, err := c.GetSkillOptimizationArms(ctx, clusters[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated[0].Stats.N)
	assert.InDelta(t, 0.5, updated[0].Stats.Mean, 1e-9)
}

func TestSQLiteConnector_LogLifecycle(t *testing.T) {
	c := newTestSQLiteConnector(t)
	ctx := context.Background()

	rec := &observability.Record{RequestID: "req-1", Status: 200, Provider: "openai"}
	require.NoError(t, c.CreateLog(ctx, rec))

	err := c.CreateLog(ctx, rec)
	require.Error(t, err)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)

	rec.Status = 201
	require.NoError(t, c.UpdateLog(ctx, rec))

	require.NoError(t, c.CreateLogOutput(ctx, "req-1", &observability.EvaluationRecord{Method: "latency"}))
	require.NoError(t, c.CreateLogOutput(ctx, "req-1", &observability.EvaluationRecord{Method: "faithfulness"}))

	outputs, err := c.GetLogOutputs(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "latency", outputs[0].Method)
	assert.Equal(t, "faithfulness", outputs[1].Method)

	_, err = c.GetLogOutputs(ctx, "missing")
	require.Error(t, err)
}

func TestSQLiteConnector_DatasetsAndEvaluationRuns(t *testing.T) {
	c := newTestSQLiteConnector(t)
	ctx := context.Background()

	_, err := c.db.ExecContext(ctx, `INSERT INTO datasets (id, name) VALUES (?, ?)`, "ds-1", "golden")
	require.NoError(t, err)

	require.NoError(t, c.CreateLog(ctx, &observability.Record{RequestID: "req-1"}))
	_, err = c.db.ExecContext(ctx, `INSERT INTO dataset_logs (dataset_id, request_id) VALUES (?, ?)`, "ds-1", "req-1")
	require.NoError(t, err)

	logs, err := c.GetDatasetLogs(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "req-1", logs[0].RequestID)

	_, err = c.GetDatasetLogs(ctx, "missing")
	require.Error(t, err)

	require.NoError(t, c.CreateEvaluationRun(ctx, &EvaluationRun{DatasetID: "ds-1", Method: "faithfulness", Status: "pending"}))
	runs, err := c.GetEvaluationRuns(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	runs[0].Status = "completed"
	require.NoError(t, c.UpdateEvaluationRun(ctx, runs[0]))

	err = c.UpdateEvaluationRun(ctx, &EvaluationRun{ID: "missing"})
	require.Error(t, err)
}

func TestSQLiteConnector_APIKeyNotFound(t *testing.T) {
	c := newTestSQLiteConnector(t)
	_, err := c.GetAIProviderAPIKeyByID(context.Background(), "missing")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
