// Package hooks runs the ordered input/output hook lists attached to a
// request's Config. A hook inspects (and may rewrite) the request or
// response body and can deny the request outright; execution is sequential
// so a later hook always sees the overrides written by an earlier one.
package hooks

import (
	"context"
	"time"

	"github.com/relaymind/relaymind/pkg/wire"
)

// Stage distinguishes the two points in the pipeline a hook can run at.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// DeniedStatus is the HTTP status surfaced when a hook denies a request.
const DeniedStatus = 446

// Invocation is what a Hook sees when it runs.
type Invocation struct {
	Stage Stage

	// Body is the current canonical body (request body for StageInput,
	// response body for StageOutput) with every prior hook's override
	// already applied.
	Body map[string]interface{}

	// Status is the upstream HTTP status; zero for StageInput.
	Status int

	Request *wire.Request
}

// Verdict is a hook's decision for one invocation.
type Verdict struct {
	DenyRequest bool
	DenyReason  string

	// RequestBodyOverride, if non-nil, replaces the body seen by every
	// hook after this one (and, for the last input hook, the body actually
	// sent upstream).
	RequestBodyOverride map[string]interface{}

	// OutputBodyOverride, if non-nil, replaces the response body seen by
	// every hook after this one (and, for the last output hook, the body
	// returned to the caller).
	OutputBodyOverride map[string]interface{}

	Annotations map[string]string
}

// Hook is the minimal contract every hook implements, whether it runs at
// input or output stage (or both — RunsAt reports which).
type Hook interface {
	Name() string
	RunsAt(stage Stage) bool
	Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error)
}

// LogEntry records one hook's execution for the observability log and the
// 446 deny envelope.
type LogEntry struct {
	HookName   string        `json:"hook_name"`
	Stage      Stage         `json:"stage"`
	Denied     bool          `json:"denied"`
	DenyReason string        `json:"deny_reason,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Result is the outcome of running one stage's hook list.
type Result struct {
	Denied      bool
	DenyReason  string
	Status      int
	Body        map[string]interface{}
	Annotations map[string]string
	Log         []LogEntry
}

// RunInput runs the input hook list against a request body in order,
// threading body overrides and short-circuiting on the first deny.
func RunInput(ctx context.Context, list []Hook, body map[string]interface{}, req *wire.Request) (*Result, error) {
	return run(ctx, StageInput, list, body, 0, req)
}

// RunOutput runs the output hook list against a response body and status.
// Per-stage results are independent of RunInput's: a retry that re-dispatches
// upstream discards a prior RunOutput Result and calls this fresh, while the
// RunInput Result from the first attempt stands unchanged.
func RunOutput(ctx context.Context, list []Hook, body map[string]interface{}, status int, req *wire.Request) (*Result, error) {
	return run(ctx, StageOutput, list, body, status, req)
}

func run(ctx context.Context, stage Stage, list []Hook, body map[string]interface{}, status int, req *wire.Request) (*Result, error) {
	result := &Result{
		Status:      status,
		Body:        body,
		Annotations: make(map[string]string),
		Log:         make([]LogEntry, 0, len(list)),
	}

	for _, h := range list {
		if !h.RunsAt(stage) {
			continue
		}

		inv := &Invocation{Stage: stage, Body: result.Body, Status: result.Status, Request: req}

		start := time.Now()
		verdict, err := h.Evaluate(ctx, inv)
		entry := LogEntry{HookName: h.Name(), Stage: stage, Duration: time.Since(start)}

		if err != nil {
			entry.Error = err.Error()
			result.Log = append(result.Log, entry)
			return result, err
		}

		if verdict == nil {
			result.Log = append(result.Log, entry)
			continue
		}

		for k, v := range verdict.Annotations {
			result.Annotations[k] = v
		}

		if verdict.DenyRequest {
			entry.Denied = true
			entry.DenyReason = verdict.DenyReason
			result.Log = append(result.Log, entry)
			result.Denied = true
			result.DenyReason = verdict.DenyReason
			result.Status = DeniedStatus
			return result, nil
		}

		switch stage {
		case StageInput:
			if verdict.RequestBodyOverride != nil {
				result.Body = verdict.RequestBodyOverride
			}
		case StageOutput:
			if verdict.OutputBodyOverride != nil {
				result.Body = verdict.OutputBodyOverride
			}
		}

		result.Log = append(result.Log, entry)
	}

	return result, nil
}
