package pipeline

import (
	"context"
	"fmt"

	"github.com/relaymind/relaymind/pkg/wire"
)

// GatewayJudge implements evaluator.Judge by reentering the same Pipeline
// that owns it, addressed at the reserved system agent and judge skill so
// judge traffic never collides with a real agent/skill pair. The evaluator
// package has already incremented the reentrancy depth on ctx before calling
// Ask; this just has to pass ctx straight through to Serve for the depth
// guard to see it on any further reentrant call.
type GatewayJudge struct {
	pipeline *Pipeline
}

// NewGatewayJudge returns an unbound Judge. The evaluator registry that
// holds it must exist before the Pipeline does (evaluator.NewDefaultRegistry
// takes a Judge up front), so construction is two-phase: build the judge,
// hand it to the registry, build the Pipeline, then Bind the judge to it.
func NewGatewayJudge() *GatewayJudge {
	return &GatewayJudge{}
}

// Bind attaches the Pipeline a judge call reenters. Must be called once,
// after p is constructed, before any evaluation runs.
func (j *GatewayJudge) Bind(p *Pipeline) {
	j.pipeline = p
}

// Ask issues one judge call as a single-turn chat request and returns the
// model's raw text, which the caller (judgeMethod.EvaluateLog) parses as a
// JSON envelope.
func (j *GatewayJudge) Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if j.pipeline == nil {
		return "", fmt.Errorf("pipeline: judge not bound to a pipeline")
	}
	req := &wire.Request{
		Function: wire.FunctionChatComplete,
		Model:    j.pipeline.JudgeConfig.judgeModelHint(),
		Messages: []wire.ChatMessage{
			{Role: wire.RoleSystem, Content: systemPrompt},
			{Role: wire.RoleUser, Content: userPrompt},
		},
	}

	in := Inbound{
		Request:    req,
		AgentName:  reservedAgentName,
		SkillName:  "__judge__",
		Config:     j.pipeline.JudgeConfig,
		WantStream: false,
	}

	result, err := j.pipeline.Serve(ctx, in)
	if err != nil {
		return "", fmt.Errorf("pipeline: judge call: %w", err)
	}
	if result.Response == nil {
		return "", fmt.Errorf("pipeline: judge call returned no response")
	}
	return result.Response.FirstText(), nil
}

// judgeModelHint returns the model the judge's single configured target
// names, so Ask doesn't have to know its own model tag; empty if the judge
// config has no targets, in which case the target's own default applies.
func (c RequestConfig) judgeModelHint() string {
	if len(c.Targets) == 0 {
		return ""
	}
	return c.Targets[0].Model
}
