package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
)

// MemoryConnector is an in-memory Connector backed by guarded maps. It
// serves tests and small single-process deployments where nothing needs to
// survive a restart.
type MemoryConnector struct {
	mu sync.RWMutex

	agents  map[string]*Agent
	skills  map[string][]*Skill // keyed by agentID
	models  []*Model
	keys    map[string]*AIProviderAPIKey
	keysTag map[string][]*AIProviderAPIKey // keyed by providerTag

	clusters map[string][]*optimizer.Cluster // keyed by skillID
	arms     map[string][]*optimizer.Arm     // keyed by clusterID
	armByID  map[string]*optimizer.Arm

	logs        map[string]*observability.Record // keyed by RequestID
	logOrder    []string
	logOutputs  map[string][]*observability.EvaluationRecord
	evalRuns    map[string]*EvaluationRun
	runsByData  map[string][]string // datasetID -> run IDs
	datasets    map[string]*Dataset
	datasetLogs map[string][]string // datasetID -> request IDs
}

// NewMemoryConnector returns an empty MemoryConnector.
func NewMemoryConnector() *MemoryConnector {
	return &MemoryConnector{
		agents:      make(map[string]*Agent),
		skills:      make(map[string][]*Skill),
		keys:        make(map[string]*AIProviderAPIKey),
		keysTag:     make(map[string][]*AIProviderAPIKey),
		clusters:    make(map[string][]*optimizer.Cluster),
		arms:        make(map[string][]*optimizer.Arm),
		armByID:     make(map[string]*optimizer.Arm),
		logs:        make(map[string]*observability.Record),
		logOutputs:  make(map[string][]*observability.EvaluationRecord),
		evalRuns:    make(map[string]*EvaluationRun),
		runsByData:  make(map[string][]string),
		datasets:    make(map[string]*Dataset),
		datasetLogs: make(map[string][]string),
	}
}

// SeedAgent and SeedSkill let callers (tests, config loaders) populate fixed
// fixture data without going through a write API the external contract
// doesn't otherwise expose a need for.
func (c *MemoryConnector) SeedAgent(agent *Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[agent.ID] = agent
}

func (c *MemoryConnector) SeedSkill(skill *Skill) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills[skill.AgentID] = append(c.skills[skill.AgentID], skill)
}

func (c *MemoryConnector) SeedModel(model *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append(c.models, model)
}

func (c *MemoryConnector) SeedAPIKey(key *AIProviderAPIKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	c.keys[key.ID] = key
	c.keysTag[key.ProviderTag] = append(c.keysTag[key.ProviderTag], key)
}

func (c *MemoryConnector) SeedDataset(dataset *Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets[dataset.ID] = dataset
}

// SeedDatasetLog associates an already-recorded log with a dataset.
func (c *MemoryConnector) SeedDatasetLog(datasetID, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasetLogs[datasetID] = append(c.datasetLogs[datasetID], requestID)
}

func (c *MemoryConnector) GetAgents(ctx context.Context) ([]*Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a)
	}
	return out, nil
}

func (c *MemoryConnector) GetSkills(ctx context.Context, agentID string) ([]*Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Skill(nil), c.skills[agentID]...), nil
}

func (c *MemoryConnector) GetModels(ctx context.Context) ([]*Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Model(nil), c.models...), nil
}

func (c *MemoryConnector) GetAIProviderAPIKeys(ctx context.Context, providerTag string) ([]*AIProviderAPIKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*AIProviderAPIKey(nil), c.keysTag[providerTag]...), nil
}

func (c *MemoryConnector) GetAIProviderAPIKeyByID(ctx context.Context, id string) (*AIProviderAPIKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ai_provider_api_key", ID: id}
	}
	return key, nil
}

func (c *MemoryConnector) GetSkillOptimizationClusters(ctx context.Context, skillID string) ([]*optimizer.Cluster, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*optimizer.Cluster(nil), c.clusters[skillID]...), nil
}

func (c *MemoryConnector) CreateSkillOptimizationClusters(ctx context.Context, clusters []*optimizer.Cluster) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range clusters {
		if cl.ID == "" {
			cl.ID = uuid.NewString()
		}
		c.clusters[cl.SkillID] = append(c.clusters[cl.SkillID], cl)
	}
	return nil
}

func (c *MemoryConnector) GetSkillOptimizationArms(ctx context.Context, clusterID string) ([]*optimizer.Arm, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*optimizer.Arm(nil), c.arms[clusterID]...), nil
}

func (c *MemoryConnector) CreateSkillOptimizationArms(ctx context.Context, arms []*optimizer.Arm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, arm := range arms {
		if arm.ID == "" {
			arm.ID = uuid.NewString()
		}
		c.arms[arm.ClusterID] = append(c.arms[arm.ClusterID], arm)
		c.armByID[arm.ID] = arm
	}
	return nil
}

func (c *MemoryConnector) UpdateSkillOptimizationArmStats(ctx context.Context, armID string, reward float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	arm, ok := c.armByID[armID]
	if !ok {
		return &NotFoundError{Resource: "optimization_arm", ID: armID}
	}
	arm.Stats.N++
	arm.Stats.TotalReward += reward
	arm.Stats.N2 += reward * reward
	arm.Stats.Mean = arm.Stats.TotalReward / float64(arm.Stats.N)
	return nil
}

func (c *MemoryConnector) CreateLog(ctx context.Context, record *observability.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if record.RequestID == "" {
		record.RequestID = uuid.NewString()
	}
	if _, exists := c.logs[record.RequestID]; exists {
		return &ConflictError{Resource: "log", ID: record.RequestID, Reason: "already exists"}
	}
	c.logs[record.RequestID] = record
	c.logOrder = append(c.logOrder, record.RequestID)
	return nil
}

func (c *MemoryConnector) UpdateLog(ctx context.Context, record *observability.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.logs[record.RequestID]; !ok {
		return &NotFoundError{Resource: "log", ID: record.RequestID}
	}
	c.logs[record.RequestID] = record
	return nil
}

func (c *MemoryConnector) GetLogOutputs(ctx context.Context, requestID string) ([]*observability.EvaluationRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.logs[requestID]; !ok {
		return nil, &NotFoundError{Resource: "log", ID: requestID}
	}
	return append([]*observability.EvaluationRecord(nil), c.logOutputs[requestID]...), nil
}

func (c *MemoryConnector) CreateLogOutput(ctx context.Context, requestID string, output *observability.EvaluationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.logs[requestID]; !ok {
		return &NotFoundError{Resource: "log", ID: requestID}
	}
	c.logOutputs[requestID] = append(c.logOutputs[requestID], output)
	return nil
}

func (c *MemoryConnector) GetEvaluationRuns(ctx context.Context, datasetID string) ([]*EvaluationRun, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.runsByData[datasetID]
	out := make([]*EvaluationRun, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.evalRuns[id])
	}
	return out, nil
}

func (c *MemoryConnector) CreateEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, exists := c.evalRuns[run.ID]; exists {
		return &ConflictError{Resource: "evaluation_run", ID: run.ID, Reason: "already exists"}
	}
	c.evalRuns[run.ID] = run
	c.runsByData[run.DatasetID] = append(c.runsByData[run.DatasetID], run.ID)
	return nil
}

func (c *MemoryConnector) UpdateEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.evalRuns[run.ID]; !ok {
		return &NotFoundError{Resource: "evaluation_run", ID: run.ID}
	}
	c.evalRuns[run.ID] = run
	return nil
}

func (c *MemoryConnector) GetDatasets(ctx context.Context) ([]*Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Dataset, 0, len(c.datasets))
	for _, d := range c.datasets {
		out = append(out, d)
	}
	return out, nil
}

func (c *MemoryConnector) GetDatasetLogs(ctx context.Context, datasetID string) ([]*observability.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.datasets[datasetID]; !ok {
		return nil, &NotFoundError{Resource: "dataset", ID: datasetID}
	}
	ids := c.datasetLogs[datasetID]
	out := make([]*observability.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := c.logs[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ Connector = (*MemoryConnector)(nil)
