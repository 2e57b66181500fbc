package config

import "time"

// DialectConfig overrides a provider dialect's defaults (its built-in base
// URL and headers already cover most upstreams; this exists for self-hosted
// or enterprise deployments that front a dialect with their own endpoint).
type DialectConfig struct {
	// BaseURL overrides the dialect's default upstream base URL.
	BaseURL string `yaml:"base_url"`

	// Headers are merged into every request this dialect builds, after the
	// dialect's own required headers.
	Headers map[string]string `yaml:"headers"`
}

// HooksConfig configures the ordered input/output hook pipeline.
type HooksConfig struct {
	// Enabled controls whether the Predicates below are added to each
	// request's hook list; hooks a request declares itself run either way.
	// ApplyDefaults does not set it. Default: false
	Enabled bool `yaml:"enabled"`

	// Predicates lists the declarative PredicateHook definitions to build
	// and register, in evaluation order.
	Predicates []PredicateHookConfig `yaml:"predicates"`
}

// PredicateHookConfig declares one built-in PredicateHook.
type PredicateHookConfig struct {
	Name       string   `yaml:"name"`
	Field      string   `yaml:"field"`
	Operator   string   `yaml:"operator"`
	Expected   string   `yaml:"expected"`
	DenyReason string   `yaml:"deny_reason"`
	Stages     []string `yaml:"stages"` // "input", "output"
}

// StrategyConfig configures the default target-selection strategy applied
// when a skill does not declare its own.
type StrategyConfig struct {
	// Mode is one of "single", "fallback", "loadbalance", "conditional".
	// Default: "single"
	Mode string `yaml:"mode"`

	// OnStatusCodes is the default retryable-status set for fallback mode.
	// Entries under 10 are treated as a status-class wildcard (e.g. 5
	// matches any 5xx). Default: [408, 429, 5].
	OnStatusCodes []int `yaml:"on_status_codes"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Enabled controls whether the response cache is consulted at all.
	// ApplyDefaults does not set it, so the cache is off unless enabled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cached entry remains valid.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the cache's size; the oldest entry is evicted once
	// exceeded. Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// SemanticThreshold is the minimum cosine similarity for a semantic
	// cache hit, in [0,1]. ApplyDefaults replaces 0 with the default, so a
	// configured 0 does not turn semantic matching off. Default: 0.95
	SemanticThreshold float64 `yaml:"semantic_threshold"`
}

// OptimizerConfig configures the adaptive optimizer. Only Enabled is read
// when the gateway is built; the other fields receive defaults but are not
// applied to skills, which carry their own values.
type OptimizerConfig struct {
	// Enabled controls whether optimization runs at all; a skill with
	// configuration_count=0 is always unoptimized regardless of this flag.
	// ApplyDefaults does not set it. Default: false
	Enabled bool `yaml:"enabled"`

	// ExplorationTemperature shapes Thompson Sampling's Beta parameters;
	// 1.0 is unshaped. Default: 1.0
	ExplorationTemperature float64 `yaml:"exploration_temperature"`

	// ClusteringInterval is how many pulls against a skill trigger one
	// streaming k-means recompute. ApplyDefaults replaces 0 with the
	// default. Default: 100
	ClusteringInterval int64 `yaml:"clustering_interval"`

	// ReflectionMinRequestsPerArm is the minimum pull count an arm needs
	// before its stats are considered stable enough to report.
	// Default: 10
	ReflectionMinRequestsPerArm int64 `yaml:"reflection_min_requests_per_arm"`
}

// EvaluatorConfig configures the evaluator registry.
type EvaluatorConfig struct {
	// EnabledMethods lists which registered method names run per request.
	// Default: ["latency"]
	EnabledMethods []string `yaml:"enabled_methods"`

	// JudgeModel is the model tag the LLM-judge methods call through the
	// gateway's own reentrant path.
	JudgeModel string `yaml:"judge_model"`

	// StrictMode collapses any judge score below 1.0 to 0.0.
	// Default: false
	StrictMode bool `yaml:"strict_mode"`

	// TargetLatencyMS/MaxLatencyMS bound the latency method's linear
	// mapping. Defaults: 2000 / 10000.
	TargetLatencyMS int64 `yaml:"target_latency_ms"`
	MaxLatencyMS    int64 `yaml:"max_latency_ms"`
}

// StorageConfig configures the storage connector backend.
type StorageConfig struct {
	// Backend selects the connector implementation.
	// Options: "memory", "sqlite". Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite reuses the same shape as EvidenceConfig.SQLite, since both
	// connectors are built on the same modernc.org/sqlite driver.
	SQLite SQLiteConfig `yaml:"sqlite"`
}
