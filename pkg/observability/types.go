// Package observability assembles and persists the structured per-request
// log record: identifiers, timings, the arm used, hook verdicts, and
// evaluation results. It generalizes the teacher's evidence package (an
// audit trail keyed to compliance/forensics) into the plain operational
// record this gateway's optimizer and API surface both read.
package observability

import (
	"context"

	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/wire"
)

// CacheStatus is the log's cache_status field.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
	CacheNA   CacheStatus = "N/A"
)

// EvaluationRecord is one evaluator method's result attached to a log.
type EvaluationRecord struct {
	Method string           `json:"method"`
	Result evaluator.Result `json:"result"`
}

// Record is one served request's complete structured log, matching every
// field spec.md's Log type enumerates.
type Record struct {
	RequestID string `json:"request_id"`
	TraceID   string `json:"trace_id"`
	SpanID    string `json:"span_id"`

	AgentID   string `json:"agent_id"`
	SkillID   string `json:"skill_id"`
	ClusterID string `json:"cluster_id,omitempty"`
	ArmID     string `json:"arm_id,omitempty"`

	Provider     string            `json:"provider"`
	Model        string            `json:"model"`
	FunctionName wire.FunctionName `json:"function_name"`
	Method       string            `json:"method"`

	RequestBody  *wire.Request  `json:"request_body,omitempty"`
	ResponseBody *wire.Response `json:"response_body,omitempty"`
	Status       int            `json:"status"`

	StartTimeMS    int64  `json:"start_time_ms"`
	FirstTokenMS   *int64 `json:"first_token_time_ms,omitempty"`
	EndTimeMS      int64  `json:"end_time_ms"`
	DurationMS     int64  `json:"duration_ms"`

	CacheStatus CacheStatus `json:"cache_status"`
	Embedding   []float32   `json:"embedding,omitempty"`

	HookLog []hooks.LogEntry `json:"hook_log,omitempty"`

	AvgEvalScore float64            `json:"avg_eval_score,omitempty"`
	Evaluations  []EvaluationRecord `json:"evaluations,omitempty"`
}

// Finalize computes derived fields (duration) once the request has
// completed. Call before Submit/Update.
func (r *Record) Finalize() {
	if r.EndTimeMS > 0 {
		r.DurationMS = r.EndTimeMS - r.StartTimeMS
	}
}

// Store persists log records. Implemented by the storage connector
// (createLog/updateLog per spec.md's external interface).
type Store interface {
	CreateLog(ctx context.Context, record *Record) error
	UpdateLog(ctx context.Context, record *Record) error
}
