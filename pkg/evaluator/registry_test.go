package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultRegistry_RegistersAllSixMethods(t *testing.T) {
	r := NewDefaultRegistry(&fakeJudge{})
	want := []string{"latency", "faithfulness", "role_adherence", "conversation_completeness", "task_completion", "argument_correctness"}
	for _, name := range want {
		_, err := r.Get(name)
		assert.NoError(t, err, "expected method %q to be registered", name)
	}
	assert.Len(t, r.Names(), len(want))
}

func TestRegistry_GetUnknownMethodErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nonexistent")
	require.Error(t, err)
}

func TestRegistry_RegisterReplacesByName(t *testing.T) {
	r := NewRegistry()
	r.Register(NewLatencyMethod())
	r.Register(NewLatencyMethod())
	assert.Len(t, r.Names(), 1)
}
