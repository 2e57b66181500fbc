package server

import (
	"fmt"

	"github.com/relaymind/relaymind/pkg/config"
	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/mpl/ast"
	"github.com/relaymind/relaymind/pkg/pipeline"
	"github.com/relaymind/relaymind/pkg/strategy"
)

// ConfigEnvelope is the JSON shape carried by the control header on every
// inference route: the per-request target list, strategy, hook set, and
// tracing/override fields. Agent and skill are addressed via Metadata
// ("agent"/"skill" keys) rather than dedicated fields, since the control
// envelope has no reserved slot for them and metadata is already the
// catch-all for caller-supplied routing context.
type ConfigEnvelope struct {
	Targets  []TargetEnvelope   `json:"targets"`
	Strategy *StrategyEnvelope  `json:"strategy,omitempty"`
	Hooks    []HookEnvelope     `json:"hooks,omitempty"`
	TraceID  string             `json:"trace_id,omitempty"`
	SpanID   string             `json:"span_id,omitempty"`
	Metadata map[string]string  `json:"metadata,omitempty"`

	ForceRefresh     bool `json:"force_refresh,omitempty"`
	StrictCompliance bool `json:"strict_compliance,omitempty"`

	SystemPromptVariables map[string]string `json:"system_prompt_variables,omitempty"`
	SystemPromptAllowList []string          `json:"system_prompt_allow_list,omitempty"`

	EvaluationMethods []string `json:"evaluation_methods,omitempty"`
}

// TargetEnvelope is one caller-supplied upstream binding.
type TargetEnvelope struct {
	Name        string            `json:"name"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model,omitempty"`
	BaseURL     string            `json:"base_url,omitempty"`
	APIKey      string            `json:"api_key,omitempty"`
	ExtraFields map[string]string `json:"extra_fields,omitempty"`
	Weight      float64           `json:"weight,omitempty"`

	RetryAttempts            int   `json:"retry_attempts,omitempty"`
	RetryOnStatusCodes       []int `json:"retry_on_status_codes,omitempty"`
	RetryUseRetryAfterHeader bool  `json:"retry_use_retry_after_header,omitempty"`
}

// StrategyEnvelope is the per-request strategy override; any zero field
// falls back to the gateway's configured default (config.StrategyConfig).
type StrategyEnvelope struct {
	Mode          string              `json:"mode,omitempty"`
	Conditions    []ConditionEnvelope `json:"conditions,omitempty"`
	DefaultIndex  int                 `json:"default_index,omitempty"`
	OnStatusCodes []int               `json:"on_status_codes,omitempty"`
}

// ConditionEnvelope is one conditional-mode routing rule.
type ConditionEnvelope struct {
	Field       string      `json:"field"`
	Operator    string      `json:"operator"`
	Value       interface{} `json:"value"`
	TargetIndex int         `json:"target_index"`
}

// HookEnvelope declares one request-scoped PredicateHook, layered after the
// gateway's configured default hooks.
type HookEnvelope struct {
	Name       string   `json:"name"`
	Field      string   `json:"field"`
	Operator   string   `json:"operator"`
	Expected   string   `json:"expected"`
	DenyReason string   `json:"deny_reason"`
	Stages     []string `json:"stages"`
}

// agentAndSkill reads the agent/skill names the request addresses out of
// the envelope's metadata, falling back to the reserved system names used
// by requests that have no caller-declared target (e.g. none - inference
// routes always require both).
func (e ConfigEnvelope) agentAndSkill() (agent, skill string) {
	return e.Metadata["agent"], e.Metadata["skill"]
}

// toRequestConfig builds the pipeline.RequestConfig this envelope and the
// gateway's own configured defaults together describe. defaults supplies
// the strategy mode/retry-codes, hook predicates, and evaluation methods a
// request doesn't override.
func (e ConfigEnvelope) toRequestConfig(defaults *config.Config) (pipeline.RequestConfig, error) {
	if len(e.Targets) == 0 {
		return pipeline.RequestConfig{}, fmt.Errorf("server: config envelope has no targets")
	}

	targets := make([]pipeline.ConfiguredTarget, len(e.Targets))
	for i, t := range e.Targets {
		if t.Name == "" {
			return pipeline.RequestConfig{}, fmt.Errorf("server: target %d has no name", i)
		}
		if t.Provider == "" {
			return pipeline.RequestConfig{}, fmt.Errorf("server: target %q has no provider", t.Name)
		}
		baseURL := t.BaseURL
		if baseURL == "" {
			if dc, ok := defaults.Dialects[t.Provider]; ok {
				baseURL = dc.BaseURL
			}
		}
		targets[i] = pipeline.ConfiguredTarget{
			Name:        t.Name,
			ProviderTag: t.Provider,
			Model:       t.Model,
			BaseURL:     baseURL,
			APIKey:      t.APIKey,
			ExtraFields: t.ExtraFields,
			Weight:      t.Weight,
			Retry: strategy.RetryPolicy{
				Attempts:            t.RetryAttempts,
				OnStatusCodes:       t.RetryOnStatusCodes,
				UseRetryAfterHeader: t.RetryUseRetryAfterHeader,
			},
		}
	}

	mode := strategy.Mode(defaults.Strategy.Mode)
	onStatusCodes := defaults.Strategy.OnStatusCodes
	var conditions []strategy.Condition
	defaultIndex := 0

	if e.Strategy != nil {
		if e.Strategy.Mode != "" {
			mode = strategy.Mode(e.Strategy.Mode)
		}
		if len(e.Strategy.OnStatusCodes) > 0 {
			onStatusCodes = e.Strategy.OnStatusCodes
		}
		defaultIndex = e.Strategy.DefaultIndex
		for _, c := range e.Strategy.Conditions {
			conditions = append(conditions, strategy.Condition{
				Query: strategy.Predicate{
					Field: c.Field,
					Op:    strategy.PredicateOp(c.Operator),
					Value: c.Value,
				},
				TargetIndex: c.TargetIndex,
			})
		}
	}
	if mode == "" {
		mode = strategy.ModeSingle
	}

	hookList, err := buildHooks(defaults.Hooks, e.Hooks)
	if err != nil {
		return pipeline.RequestConfig{}, err
	}

	evalMethods := e.EvaluationMethods
	if evalMethods == nil {
		evalMethods = defaults.Evaluator.EnabledMethods
	}

	return pipeline.RequestConfig{
		Targets:       targets,
		Mode:          mode,
		Conditions:    conditions,
		DefaultIndex:  defaultIndex,
		OnStatusCodes: onStatusCodes,

		Hooks: hookList,

		TraceID: e.TraceID,
		SpanID:  e.SpanID,

		ForceRefresh:     e.ForceRefresh,
		StrictCompliance: e.StrictCompliance,

		SystemPromptVariables: e.SystemPromptVariables,
		SystemPromptAllowList: e.SystemPromptAllowList,

		EvaluationMethods: evalMethods,
		EvaluationParams: evaluator.Params{
			TargetLatencyMS: defaults.Evaluator.TargetLatencyMS,
			MaxLatencyMS:    defaults.Evaluator.MaxLatencyMS,
			StrictMode:      defaults.Evaluator.StrictMode,
		},
	}, nil
}

// buildHooks constructs the ordered hook list a request runs: the
// gateway's configured default predicates first, then any request-scoped
// ones the envelope adds, mirroring the gateway's "global policy plus
// per-request refinement" shape.
func buildHooks(cfg config.HooksConfig, extra []HookEnvelope) ([]hooks.Hook, error) {
	if !cfg.Enabled && len(extra) == 0 {
		return nil, nil
	}

	var out []hooks.Hook
	if cfg.Enabled {
		for _, p := range cfg.Predicates {
			h, err := hookFromPredicateConfig(p.Name, p.Field, p.Operator, p.Expected, p.DenyReason, p.Stages)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
	}
	for _, p := range extra {
		h, err := hookFromPredicateConfig(p.Name, p.Field, p.Operator, p.Expected, p.DenyReason, p.Stages)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func hookFromPredicateConfig(name, field, operator, expected, denyReason string, stageNames []string) (hooks.Hook, error) {
	stages := make([]hooks.Stage, 0, len(stageNames))
	for _, s := range stageNames {
		switch s {
		case "input":
			stages = append(stages, hooks.StageInput)
		case "output":
			stages = append(stages, hooks.StageOutput)
		default:
			return nil, fmt.Errorf("server: hook %q has unknown stage %q", name, s)
		}
	}
	if len(stages) == 0 {
		stages = []hooks.Stage{hooks.StageInput, hooks.StageOutput}
	}
	return hooks.NewPredicateHook(name, field, ast.Operator(operator), expected, denyReason, stages...), nil
}
