package pipeline

import (
	"fmt"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/optimizer"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/wire"
)

// buildStrategyTargets resolves the caller-supplied targets into the
// dialect-bearing strategy.Target list the Planner consumes. When decision
// is non-nil (the skill is optimized and the function supports semantic
// routing), the arm's materialized model id overrides each target's
// configured model - the arm binds the skill's choice of model, while the
// target list still supplies the provider/credentials/fallback order.
func buildStrategyTargets(cfg RequestConfig, decision *optimizer.Decision) []*strategy.Target {
	targets := make([]*strategy.Target, 0, len(cfg.Targets))
	for _, ct := range cfg.Targets {
		dt := ct.dialectTargetOf()
		if decision != nil && decision.Params.ModelID != "" {
			dt.Model = decision.Params.ModelID
		}
		targets = append(targets, &strategy.Target{
			Name:        ct.Name,
			ProviderTag: ct.ProviderTag,
			Dialect:     dt,
			Weight:      ct.Weight,
			Retry:       ct.Retry,
			CacheConfig: ct.CacheConfig,
		})
	}
	return targets
}

// applyOptimizerParams returns a shallow copy of req with the arm's
// materialized parameters overlaid: model id, a prepended/replaced system
// prompt turn, and the continuous generation parameters. req itself is left
// untouched so the original inbound request can still be used for logging
// and cache fingerprinting decisions that predate the optimizer's choice.
func applyOptimizerParams(req *wire.Request, params optimizer.MaterializedParams) *wire.Request {
	out := *req
	if params.ModelID != "" {
		out.Model = params.ModelID
	}
	if params.Temperature != 0 {
		t := params.Temperature
		out.Temperature = &t
	}
	if params.TopP != 0 {
		p := params.TopP
		out.TopP = &p
	}
	if params.FrequencyPenalty != 0 {
		f := params.FrequencyPenalty
		out.FrequencyPenalty = &f
	}
	if params.PresencePenalty != 0 {
		p := params.PresencePenalty
		out.PresencePenalty = &p
	}
	if params.ReasoningEffort != "" {
		out.ReasoningEffort = params.ReasoningEffort
	}
	if params.SystemPrompt != "" {
		out.Messages = withSystemPrompt(req.Messages, params.SystemPrompt)
	}
	return &out
}

// withSystemPrompt returns messages with its leading system/developer turn
// replaced by prompt, or prompt prepended as a new one if none exists.
func withSystemPrompt(messages []wire.ChatMessage, prompt string) []wire.ChatMessage {
	out := make([]wire.ChatMessage, len(messages))
	copy(out, messages)

	for i, m := range out {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			out[i] = wire.ChatMessage{Role: m.Role, Content: prompt}
			return out
		}
	}

	return append([]wire.ChatMessage{{Role: wire.RoleSystem, Content: prompt}}, out...)
}

// dialectOf resolves a target's registered Dialect, wrapping ErrInvalidProvider
// with the target's own name for easier diagnosis in logs.
func dialectOf(registry *dialect.Registry, targetName, providerTag string) (dialect.Dialect, error) {
	d, err := registry.Resolve(providerTag)
	if err != nil {
		return nil, fmt.Errorf("pipeline: target %q: %w", targetName, err)
	}
	return d, nil
}
