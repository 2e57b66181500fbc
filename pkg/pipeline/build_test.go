package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/optimizer"
	"github.com/relaymind/relaymind/pkg/wire"
)

func TestBuildStrategyTargets_NoDecisionKeepsConfiguredModel(t *testing.T) {
	cfg := RequestConfig{
		Targets: []ConfiguredTarget{
			{Name: "primary", ProviderTag: "openai", Model: "gpt-4o"},
		},
	}

	targets := buildStrategyTargets(cfg, nil)
	require.Len(t, targets, 1)
	require.Equal(t, "gpt-4o", targets[0].Dialect.Model)
}

func TestBuildStrategyTargets_DecisionOverridesModel(t *testing.T) {
	cfg := RequestConfig{
		Targets: []ConfiguredTarget{
			{Name: "primary", ProviderTag: "openai", Model: "gpt-4o"},
			{Name: "fallback", ProviderTag: "anthropic", Model: "claude-3-5-sonnet"},
		},
	}
	decision := &optimizer.Decision{Params: optimizer.MaterializedParams{ModelID: "gpt-4o-mini"}}

	targets := buildStrategyTargets(cfg, decision)
	require.Len(t, targets, 2)
	require.Equal(t, "gpt-4o-mini", targets[0].Dialect.Model)
	require.Equal(t, "gpt-4o-mini", targets[1].Dialect.Model)
}

func TestApplyOptimizerParams_OverlaysContinuousParams(t *testing.T) {
	req := &wire.Request{
		Model:    "gpt-4o",
		Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}},
	}
	params := optimizer.MaterializedParams{
		ModelID:         "gpt-4o-mini",
		Temperature:     0.4,
		TopP:            0.9,
		SystemPrompt:    "be terse",
		ReasoningEffort: "low",
	}

	out := applyOptimizerParams(req, params)

	require.Equal(t, "gpt-4o-mini", out.Model)
	require.NotNil(t, out.Temperature)
	require.InDelta(t, 0.4, *out.Temperature, 1e-9)
	require.NotNil(t, out.TopP)
	require.InDelta(t, 0.9, *out.TopP, 1e-9)
	require.Equal(t, "low", out.ReasoningEffort)
	require.Len(t, out.Messages, 2)
	require.Equal(t, wire.RoleSystem, out.Messages[0].Role)
	require.Equal(t, "be terse", out.Messages[0].Content)

	// req itself must be untouched.
	require.Len(t, req.Messages, 1)
	require.Nil(t, req.Temperature)
}

func TestWithSystemPrompt_ReplacesExistingSystemTurn(t *testing.T) {
	messages := []wire.ChatMessage{
		{Role: wire.RoleSystem, Content: "old"},
		{Role: wire.RoleUser, Content: "hi"},
	}

	out := withSystemPrompt(messages, "new")
	require.Len(t, out, 2)
	require.Equal(t, "new", out[0].Content)
}

func TestWithSystemPrompt_PrependsWhenAbsent(t *testing.T) {
	messages := []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}

	out := withSystemPrompt(messages, "new")
	require.Len(t, out, 2)
	require.Equal(t, wire.RoleSystem, out[0].Role)
	require.Equal(t, "new", out[0].Content)
}

type fakeDialect struct{ name string }

func (f *fakeDialect) Name() string                                     { return f.name }
func (f *fakeDialect) BaseURL(dialect.Target) (string, error)           { return "https://api.example.com", nil }
func (f *fakeDialect) Headers(dialect.Target, wire.FunctionName) (map[string]string, error) {
	return nil, nil
}
func (f *fakeDialect) Endpoint(*wire.Request, dialect.Target) (string, error) { return "/v1/chat/completions", nil }
func (f *fakeDialect) ParameterTable(wire.FunctionName) dialect.ParameterTable { return nil }
func (f *fakeDialect) ResponseTransform([]byte, int, map[string]string, bool, *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	return nil, nil
}
func (f *fakeDialect) StreamChunkTransform([]byte, *dialect.StreamState, bool, *wire.Request) ([]*wire.Chunk, error) {
	return nil, nil
}
func (f *fakeDialect) ErrorTransform([]byte, int) *dialect.CanonicalError { return nil }
func (f *fakeDialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }
func (f *fakeDialect) IsAPIKeyRequired() bool                             { return true }

func TestDialectOf_WrapsErrorWithTargetName(t *testing.T) {
	registry := dialect.NewRegistry()
	registry.Register(&fakeDialect{name: "openai"})

	_, err := dialectOf(registry, "primary", "azure")
	require.Error(t, err)
	require.Contains(t, err.Error(), "primary")

	d, err := dialectOf(registry, "primary", "openai")
	require.NoError(t, err)
	require.Equal(t, "openai", d.Name())
}
