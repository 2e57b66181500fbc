// Package storage implements the external storage Connector: the
// persistence boundary for agents, skills, models, provider API keys,
// optimizer clusters/arms, logs, evaluation runs, and datasets. The core
// pipeline depends only on the Connector interface; MemoryConnector backs
// tests and small deployments, SQLiteConnector backs anything that needs
// to survive a restart.
package storage

import (
	"context"
	"time"

	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
)

// Agent is a named owner of skills.
type Agent struct {
	ID          string
	Name        string
	Description string
	Metadata    map[string]string
}

// Skill is an AI-addressable capability belonging to one agent.
type Skill struct {
	ID                          string
	AgentID                     string
	Name                        string
	Optimize                    bool
	ConfigurationCount          int
	SystemPromptCount           int
	ClusteringInterval          int64
	ExplorationTemperature      float64
	ReflectionMinRequestsPerArm int64
}

// Model describes one selectable upstream model.
type Model struct {
	ID           string
	ProviderTag  string
	Name         string
	Capabilities []string
}

// AIProviderAPIKey is one credential bound to a provider tag.
type AIProviderAPIKey struct {
	ID          string
	ProviderTag string
	Label       string
	Secret      string // never logged; redacted by callers before it reaches a log
}

// EvaluationRun is a batch evaluation invocation over a dataset.
type EvaluationRun struct {
	ID          string
	DatasetID   string
	Method      string
	Status      string // "pending", "running", "completed", "failed"
	StartedAt   time.Time
	CompletedAt *time.Time
	Summary     map[string]interface{}
}

// Dataset is a named collection of logs used for batch evaluation.
type Dataset struct {
	ID   string
	Name string
}

// NotFoundError/ConflictError/UnavailableError are the three failure modes
// every Connector method may return, per the external interface contract.
type NotFoundError struct{ Resource, ID string }

func (e *NotFoundError) Error() string { return "storage: " + e.Resource + " " + e.ID + " not found" }

type ConflictError struct{ Resource, ID, Reason string }

func (e *ConflictError) Error() string {
	return "storage: " + e.Resource + " " + e.ID + " conflict: " + e.Reason
}

type UnavailableError struct{ Reason string }

func (e *UnavailableError) Error() string { return "storage: unavailable: " + e.Reason }

// Connector is the full external storage surface spec.md's §6 names.
type Connector interface {
	GetAgents(ctx context.Context) ([]*Agent, error)
	GetSkills(ctx context.Context, agentID string) ([]*Skill, error)
	GetModels(ctx context.Context) ([]*Model, error)
	GetAIProviderAPIKeys(ctx context.Context, providerTag string) ([]*AIProviderAPIKey, error)
	GetAIProviderAPIKeyByID(ctx context.Context, id string) (*AIProviderAPIKey, error)

	GetSkillOptimizationClusters(ctx context.Context, skillID string) ([]*optimizer.Cluster, error)
	CreateSkillOptimizationClusters(ctx context.Context, clusters []*optimizer.Cluster) error
	GetSkillOptimizationArms(ctx context.Context, clusterID string) ([]*optimizer.Arm, error)
	CreateSkillOptimizationArms(ctx context.Context, arms []*optimizer.Arm) error
	UpdateSkillOptimizationArmStats(ctx context.Context, armID string, reward float64) error

	CreateLog(ctx context.Context, record *observability.Record) error
	UpdateLog(ctx context.Context, record *observability.Record) error
	GetLogOutputs(ctx context.Context, requestID string) ([]*observability.EvaluationRecord, error)
	CreateLogOutput(ctx context.Context, requestID string, output *observability.EvaluationRecord) error

	GetEvaluationRuns(ctx context.Context, datasetID string) ([]*EvaluationRun, error)
	CreateEvaluationRun(ctx context.Context, run *EvaluationRun) error
	UpdateEvaluationRun(ctx context.Context, run *EvaluationRun) error

	GetDatasets(ctx context.Context) ([]*Dataset, error)
	GetDatasetLogs(ctx context.Context, datasetID string) ([]*observability.Record, error)
}
