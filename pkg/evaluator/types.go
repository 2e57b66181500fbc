// Package evaluator implements the pluggable judge registry: a set of named
// Methods that consume a completed request log and emit a scalar reward in
// [0,1] plus a structured result, feeding back into the C7 optimizer's arm
// reward update. Deterministic methods (latency) score pure functions of the
// log; LLM-judge methods reenter the gateway through the Judge collaborator
// to ask a configured judge model, guarded by a depth counter against
// judge-of-judge loops.
package evaluator

import (
	"context"

	"github.com/relaymind/relaymind/pkg/wire"
)

// Log is the narrow slice of an observability log record an evaluator reads.
// pkg/observability owns the full record; this is only the fields judging
// requires.
type Log struct {
	RequestID      string
	AgentID        string
	SkillID        string
	ArmID          string
	Provider       string
	Model          string
	FunctionName   wire.FunctionName
	RequestBody    *wire.Request
	ResponseBody   *wire.Response
	StartTimeMS    int64
	FirstTokenMS   *int64 // nullable, streaming only
	EndTimeMS      int64
	Conversation   []wire.ChatMessage // full turn history, request + response
}

// DurationMS returns the end-to-end wall time for the served request.
func (l Log) DurationMS() int64 {
	return l.EndTimeMS - l.StartTimeMS
}

// Result is what one evaluateLog call returns.
type Result struct {
	Score       float64                `json:"score"`
	Extras      map[string]interface{} `json:"extras,omitempty"`
	DisplayInfo []string               `json:"display_info,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Params configures one evaluation run: per-method tunables plus the
// strict_mode collapse shared by every LLM-judge method.
type Params struct {
	TargetLatencyMS int64
	MaxLatencyMS    int64
	StrictMode      bool
	Extra           map[string]interface{}
}

// Method is one pluggable evaluator. evaluateLog is pure with respect to
// log; Evaluate (batch) is optional and may be left nil.
type Method interface {
	Name() string
	EvaluateLog(ctx context.Context, log Log, params Params, storage Storage) (Result, error)
}

// BatchMethod is the optional batch extension over a dataset of logs.
type BatchMethod interface {
	Method
	Evaluate(ctx context.Context, logs []Log, params Params, storage Storage) ([]Result, error)
}

// Storage is the narrow read surface evaluators may need (e.g. looking up
// sibling logs in a conversation, or dataset membership). The optimizer and
// pipeline pass their storage connector through this interface.
type Storage interface {
	GetLog(ctx context.Context, requestID string) (*Log, error)
}

// clampScore keeps every method's output inside the [0,1] contract even if
// an individual scoring formula over/undershoots at the boundary.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
