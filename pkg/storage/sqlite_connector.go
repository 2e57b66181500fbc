package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/google/uuid"
	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS skills (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	name TEXT NOT NULL,
	optimize INTEGER NOT NULL,
	configuration_count INTEGER NOT NULL,
	system_prompt_count INTEGER NOT NULL,
	clustering_interval INTEGER NOT NULL,
	exploration_temperature REAL NOT NULL,
	reflection_min_requests_per_arm INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_skills_agent ON skills(agent_id);

CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	provider_tag TEXT NOT NULL,
	name TEXT NOT NULL,
	capabilities TEXT
);

CREATE TABLE IF NOT EXISTS ai_provider_api_keys (
	id TEXT PRIMARY KEY,
	provider_tag TEXT NOT NULL,
	label TEXT,
	secret TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_keys_provider_tag ON ai_provider_api_keys(provider_tag);

CREATE TABLE IF NOT EXISTS optimization_clusters (
	id TEXT PRIMARY KEY,
	skill_id TEXT NOT NULL,
	name TEXT,
	centroid TEXT,
	total_steps INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clusters_skill ON optimization_clusters(skill_id);

CREATE TABLE IF NOT EXISTS optimization_arms (
	id TEXT PRIMARY KEY,
	cluster_id TEXT NOT NULL,
	params TEXT,
	stats TEXT
);
CREATE INDEX IF NOT EXISTS idx_arms_cluster ON optimization_arms(cluster_id);

CREATE TABLE IF NOT EXISTS logs (
	request_id TEXT PRIMARY KEY,
	record TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS log_outputs (
	request_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	output TEXT NOT NULL,
	PRIMARY KEY (request_id, seq)
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	run TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON evaluation_runs(dataset_id);

CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dataset_logs (
	dataset_id TEXT NOT NULL,
	request_id TEXT NOT NULL,
	PRIMARY KEY (dataset_id, request_id)
);
`

// SQLiteConfig mirrors the shape the evidence and limits SQLite backends
// already use, applied here to the external storage connector.
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         "data/relaymind.db",
		MaxOpenConns: 1,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteConnector implements Connector on top of a single-writer SQLite
// database. Relational entities (agents, skills, models, keys) get real
// columns; nested domain objects (clusters, arms, log records, evaluation
// runs) are stored as JSON blobs keyed by their natural ID, since their
// shape is owned by pkg/optimizer and pkg/observability, not by this
// package.
type SQLiteConnector struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteConnector opens (and migrates) a SQLite-backed connector.
func NewSQLiteConnector(cfg SQLiteConfig) (*SQLiteConnector, error) {
	if cfg.Path == "" {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 1
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate schema: %w", err)
	}

	return &SQLiteConnector{db: db}, nil
}

func (c *SQLiteConnector) Close() error {
	return c.db.Close()
}

func (c *SQLiteConnector) GetAgents(ctx context.Context) ([]*Agent, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, description, metadata FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("storage: get agents: %w", err)
	}
	defer rows.Close()

	var out []*Agent
	for rows.Next() {
		var a Agent
		var metadata string
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &metadata); err != nil {
			return nil, fmt.Errorf("storage: scan agent: %w", err)
		}
		if metadata != "" {
			json.Unmarshal([]byte(metadata), &a.Metadata)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) GetSkills(ctx context.Context, agentID string) ([]*Skill, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, agent_id, name, optimize, configuration_count, system_prompt_count,
		       clustering_interval, exploration_temperature, reflection_min_requests_per_arm
		FROM skills WHERE agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("storage: get skills: %w", err)
	}
	defer rows.Close()

	var out []*Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.AgentID, &s.Name, &s.Optimize, &s.ConfigurationCount,
			&s.SystemPromptCount, &s.ClusteringInterval, &s.ExplorationTemperature,
			&s.ReflectionMinRequestsPerArm); err != nil {
			return nil, fmt.Errorf("storage: scan skill: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) GetModels(ctx context.Context) ([]*Model, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, provider_tag, name, capabilities FROM models`)
	if err != nil {
		return nil, fmt.Errorf("storage: get models: %w", err)
	}
	defer rows.Close()

	var out []*Model
	for rows.Next() {
		var m Model
		var caps string
		if err := rows.Scan(&m.ID, &m.ProviderTag, &m.Name, &caps); err != nil {
			return nil, fmt.Errorf("storage: scan model: %w", err)
		}
		if caps != "" {
			json.Unmarshal([]byte(caps), &m.Capabilities)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) GetAIProviderAPIKeys(ctx context.Context, providerTag string) ([]*AIProviderAPIKey, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, provider_tag, label, secret FROM ai_provider_api_keys WHERE provider_tag = ?`, providerTag)
	if err != nil {
		return nil, fmt.Errorf("storage: get api keys: %w", err)
	}
	defer rows.Close()

	var out []*AIProviderAPIKey
	for rows.Next() {
		var k AIProviderAPIKey
		if err := rows.Scan(&k.ID, &k.ProviderTag, &k.Label, &k.Secret); err != nil {
			return nil, fmt.Errorf("storage: scan api key: %w", err)
		}
		out = append(out, &k)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) GetAIProviderAPIKeyByID(ctx context.Context, id string) (*AIProviderAPIKey, error) {
	var k AIProviderAPIKey
	err := c.db.QueryRowContext(ctx, `
		SELECT id, provider_tag, label, secret FROM ai_provider_api_keys WHERE id = ?`, id).
		Scan(&k.ID, &k.ProviderTag, &k.Label, &k.Secret)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "ai_provider_api_key", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get api key: %w", err)
	}
	return &k, nil
}

func (c *SQLiteConnector) GetSkillOptimizationClusters(ctx context.Context, skillID string) ([]*optimizer.Cluster, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, skill_id, name, centroid, total_steps FROM optimization_clusters WHERE skill_id = ?`, skillID)
	if err != nil {
		return nil, fmt.Errorf("storage: get clusters: %w", err)
	}
	defer rows.Close()

	var out []*optimizer.Cluster
	for rows.Next() {
		var cl optimizer.Cluster
		var centroid string
		if err := rows.Scan(&cl.ID, &cl.SkillID, &cl.Name, &centroid, &cl.TotalSteps); err != nil {
			return nil, fmt.Errorf("storage: scan cluster: %w", err)
		}
		if centroid != "" {
			json.Unmarshal([]byte(centroid), &cl.Centroid)
		}
		out = append(out, &cl)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) CreateSkillOptimizationClusters(ctx context.Context, clusters []*optimizer.Cluster) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, cl := range clusters {
		if cl.ID == "" {
			cl.ID = uuid.NewString()
		}
		centroid, _ := json.Marshal(cl.Centroid)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO optimization_clusters (id, skill_id, name, centroid, total_steps)
			VALUES (?, ?, ?, ?, ?)`,
			cl.ID, cl.SkillID, cl.Name, string(centroid), cl.TotalSteps); err != nil {
			return fmt.Errorf("storage: insert cluster: %w", err)
		}
	}
	return tx.Commit()
}

func (c *SQLiteConnector) GetSkillOptimizationArms(ctx context.Context, clusterID string) ([]*optimizer.Arm, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, cluster_id, params, stats FROM optimization_arms WHERE cluster_id = ?`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("storage: get arms: %w", err)
	}
	defer rows.Close()

	var out []*optimizer.Arm
	for rows.Next() {
		var arm optimizer.Arm
		var params, stats string
		if err := rows.Scan(&arm.ID, &arm.ClusterID, &params, &stats); err != nil {
			return nil, fmt.Errorf("storage: scan arm: %w", err)
		}
		if params != "" {
			json.Unmarshal([]byte(params), &arm.Params)
		}
		if stats != "" {
			json.Unmarshal([]byte(stats), &arm.Stats)
		}
		out = append(out, &arm)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) CreateSkillOptimizationArms(ctx context.Context, arms []*optimizer.Arm) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, arm := range arms {
		if arm.ID == "" {
			arm.ID = uuid.NewString()
		}
		params, _ := json.Marshal(arm.Params)
		stats, _ := json.Marshal(arm.Stats)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO optimization_arms (id, cluster_id, params, stats)
			VALUES (?, ?, ?, ?)`,
			arm.ID, arm.ClusterID, string(params), string(stats)); err != nil {
			return fmt.Errorf("storage: insert arm: %w", err)
		}
	}
	return tx.Commit()
}

func (c *SQLiteConnector) UpdateSkillOptimizationArmStats(ctx context.Context, armID string, reward float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var statsJSON string
	err := c.db.QueryRowContext(ctx, `SELECT stats FROM optimization_arms WHERE id = ?`, armID).Scan(&statsJSON)
	if err == sql.ErrNoRows {
		return &NotFoundError{Resource: "optimization_arm", ID: armID}
	}
	if err != nil {
		return fmt.Errorf("storage: get arm stats: %w", err)
	}

	var stats optimizer.ArmStats
	if statsJSON != "" {
		json.Unmarshal([]byte(statsJSON), &stats)
	}
	stats.N++
	stats.TotalReward += reward
	stats.N2 += reward * reward
	stats.Mean = stats.TotalReward / float64(stats.N)

	updated, _ := json.Marshal(stats)
	_, err = c.db.ExecContext(ctx, `UPDATE optimization_arms SET stats = ? WHERE id = ?`, string(updated), armID)
	if err != nil {
		return fmt.Errorf("storage: update arm stats: %w", err)
	}
	return nil
}

func (c *SQLiteConnector) CreateLog(ctx context.Context, record *observability.Record) error {
	if record.RequestID == "" {
		record.RequestID = uuid.NewString()
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("storage: marshal log: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO logs (request_id, record) VALUES (?, ?)`, record.RequestID, string(blob))
	if err != nil {
		return &ConflictError{Resource: "log", ID: record.RequestID, Reason: err.Error()}
	}
	return nil
}

func (c *SQLiteConnector) UpdateLog(ctx context.Context, record *observability.Record) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("storage: marshal log: %w", err)
	}
	res, err := c.db.ExecContext(ctx, `UPDATE logs SET record = ? WHERE request_id = ?`, string(blob), record.RequestID)
	if err != nil {
		return fmt.Errorf("storage: update log: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &NotFoundError{Resource: "log", ID: record.RequestID}
	}
	return nil
}

func (c *SQLiteConnector) getLogRecord(ctx context.Context, requestID string) (*observability.Record, error) {
	var blob string
	err := c.db.QueryRowContext(ctx, `SELECT record FROM logs WHERE request_id = ?`, requestID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "log", ID: requestID}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get log: %w", err)
	}
	var rec observability.Record
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, fmt.Errorf("storage: unmarshal log: %w", err)
	}
	return &rec, nil
}

func (c *SQLiteConnector) GetLogOutputs(ctx context.Context, requestID string) ([]*observability.EvaluationRecord, error) {
	if _, err := c.getLogRecord(ctx, requestID); err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, `SELECT output FROM log_outputs WHERE request_id = ? ORDER BY seq`, requestID)
	if err != nil {
		return nil, fmt.Errorf("storage: get log outputs: %w", err)
	}
	defer rows.Close()

	var out []*observability.EvaluationRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("storage: scan log output: %w", err)
		}
		var rec observability.EvaluationRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("storage: unmarshal log output: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) CreateLogOutput(ctx context.Context, requestID string, output *observability.EvaluationRecord) error {
	if _, err := c.getLogRecord(ctx, requestID); err != nil {
		return err
	}
	blob, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("storage: marshal log output: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var next int
	c.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM log_outputs WHERE request_id = ?`, requestID).Scan(&next)
	_, err = c.db.ExecContext(ctx, `INSERT INTO log_outputs (request_id, seq, output) VALUES (?, ?, ?)`, requestID, next, string(blob))
	if err != nil {
		return fmt.Errorf("storage: insert log output: %w", err)
	}
	return nil
}

func (c *SQLiteConnector) GetEvaluationRuns(ctx context.Context, datasetID string) ([]*EvaluationRun, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT run FROM evaluation_runs WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("storage: get evaluation runs: %w", err)
	}
	defer rows.Close()

	var out []*EvaluationRun
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("storage: scan evaluation run: %w", err)
		}
		var run EvaluationRun
		if err := json.Unmarshal([]byte(blob), &run); err != nil {
			return nil, fmt.Errorf("storage: unmarshal evaluation run: %w", err)
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) CreateEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	blob, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("storage: marshal evaluation run: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO evaluation_runs (id, dataset_id, run) VALUES (?, ?, ?)`, run.ID, run.DatasetID, string(blob))
	if err != nil {
		return &ConflictError{Resource: "evaluation_run", ID: run.ID, Reason: err.Error()}
	}
	return nil
}

func (c *SQLiteConnector) UpdateEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	blob, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("storage: marshal evaluation run: %w", err)
	}
	res, err := c.db.ExecContext(ctx, `UPDATE evaluation_runs SET run = ? WHERE id = ?`, string(blob), run.ID)
	if err != nil {
		return fmt.Errorf("storage: update evaluation run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &NotFoundError{Resource: "evaluation_run", ID: run.ID}
	}
	return nil
}

func (c *SQLiteConnector) GetDatasets(ctx context.Context) ([]*Dataset, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("storage: get datasets: %w", err)
	}
	defer rows.Close()

	var out []*Dataset
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("storage: scan dataset: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (c *SQLiteConnector) GetDatasetLogs(ctx context.Context, datasetID string) ([]*observability.Record, error) {
	var exists string
	err := c.db.QueryRowContext(ctx, `SELECT id FROM datasets WHERE id = ?`, datasetID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "dataset", ID: datasetID}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get dataset: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT request_id FROM dataset_logs WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("storage: get dataset logs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan dataset log: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*observability.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := c.getLogRecord(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ Connector = (*SQLiteConnector)(nil)
