package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/mpl/ast"
)

type recordingHook struct {
	name    string
	stages  map[Stage]bool
	verdict *Verdict
	calls   *[]string
}

func (h *recordingHook) Name() string            { return h.name }
func (h *recordingHook) RunsAt(s Stage) bool      { return h.stages[s] }
func (h *recordingHook) Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error) {
	*h.calls = append(*h.calls, h.name)
	return h.verdict, nil
}

func TestRunInput_ExecutesSequentiallyInOrder(t *testing.T) {
	var calls []string
	list := []Hook{
		&recordingHook{name: "a", stages: map[Stage]bool{StageInput: true}, calls: &calls},
		&recordingHook{name: "b", stages: map[Stage]bool{StageInput: true}, calls: &calls},
	}
	result, err := RunInput(context.Background(), list, map[string]interface{}{"model": "gpt-4"}, nil)
	require.NoError(t, err)
	assert.False(t, result.Denied)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestRunInput_FirstDenyShortCircuits(t *testing.T) {
	var calls []string
	list := []Hook{
		&recordingHook{name: "a", stages: map[Stage]bool{StageInput: true}, calls: &calls, verdict: &Verdict{DenyRequest: true, DenyReason: "blocked"}},
		&recordingHook{name: "b", stages: map[Stage]bool{StageInput: true}, calls: &calls},
	}
	result, err := RunInput(context.Background(), list, map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.True(t, result.Denied)
	assert.Equal(t, "blocked", result.DenyReason)
	assert.Equal(t, DeniedStatus, result.Status)
	assert.Equal(t, []string{"a"}, calls) // "b" never ran
}

func TestRunInput_OverridesThreadToLaterHooks(t *testing.T) {
	overridden := map[string]interface{}{"model": "gpt-4o"}
	var seenByB map[string]interface{}

	hookA := &overrideHook{name: "a", override: overridden}
	hookB := &captureHook{name: "b", seen: &seenByB}

	result, err := RunInput(context.Background(), []Hook{hookA, hookB}, map[string]interface{}{"model": "gpt-3.5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, overridden, result.Body)
	assert.Equal(t, overridden, seenByB)
}

type overrideHook struct {
	name     string
	override map[string]interface{}
}

func (h *overrideHook) Name() string       { return h.name }
func (h *overrideHook) RunsAt(Stage) bool  { return true }
func (h *overrideHook) Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error) {
	return &Verdict{RequestBodyOverride: h.override}, nil
}

type captureHook struct {
	name string
	seen *map[string]interface{}
}

func (h *captureHook) Name() string      { return h.name }
func (h *captureHook) RunsAt(Stage) bool { return true }
func (h *captureHook) Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error) {
	*h.seen = inv.Body
	return nil, nil
}

func TestRunOutput_CarriesStatusToHooks(t *testing.T) {
	var sawStatus int
	hook := &statusCapture{seen: &sawStatus}
	_, err := RunOutput(context.Background(), []Hook{hook}, map[string]interface{}{}, 502, nil)
	require.NoError(t, err)
	assert.Equal(t, 502, sawStatus)
}

type statusCapture struct{ seen *int }

func (h *statusCapture) Name() string      { return "status" }
func (h *statusCapture) RunsAt(Stage) bool { return true }
func (h *statusCapture) Evaluate(ctx context.Context, inv *Invocation) (*Verdict, error) {
	*h.seen = inv.Status
	return nil, nil
}

func TestPredicateHook_DeniesOnMatch(t *testing.T) {
	h := NewPredicateHook("block-model", "model", ast.OperatorEqual, "banned-model", "model not allowed", StageInput)
	result, err := RunInput(context.Background(), []Hook{h}, map[string]interface{}{"model": "banned-model"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Denied)
	assert.Equal(t, "model not allowed", result.DenyReason)
}

func TestPredicateHook_PassesWhenFieldAbsent(t *testing.T) {
	h := NewPredicateHook("block-model", "model", ast.OperatorEqual, "banned-model", "model not allowed", StageInput)
	result, err := RunInput(context.Background(), []Hook{h}, map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.False(t, result.Denied)
}

func TestPredicateHook_ContainsOperatorOnNestedPath(t *testing.T) {
	h := NewPredicateHook("block-pii", "metadata.note", ast.OperatorContains, "ssn", "pii detected", StageInput)
	body := map[string]interface{}{"metadata": map[string]interface{}{"note": "contains ssn maybe"}}
	result, err := RunInput(context.Background(), []Hook{h}, body, nil)
	require.NoError(t, err)
	assert.True(t, result.Denied)
}
