package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

func TestApply_DefaultAndClamp(t *testing.T) {
	half := 0.5
	zero := 0.0
	one := 1.0
	table := dialect.ParameterTable{
		"temperature": {Param: "parameters.temperature", Default: 0.7, Min: &zero, Max: &one},
		"top_p":       {Param: "parameters.top_p"},
	}
	req := &wire.Request{Model: "gpt-4", TopP: &half}

	e := NewEngine()
	result, err := e.Apply(table, req, nil)
	require.NoError(t, err)

	params := result.Body["parameters"].(map[string]interface{})
	assert.Equal(t, 0.7, params["temperature"], "absent field with a default should substitute it")
	assert.Equal(t, 0.5, params["top_p"])
}

func TestApply_RequiredMissingFails(t *testing.T) {
	table := dialect.ParameterTable{
		"model": {Param: "model", Required: true},
	}
	req := &wire.Request{}
	e := NewEngine()
	_, err := e.Apply(table, req, nil)
	require.Error(t, err)
	var mp *MissingParameterError
	require.ErrorAs(t, err, &mp)
}

func TestApply_TransformRewritesRole(t *testing.T) {
	table := dialect.ParameterTable{
		"messages": {
			Param: "messages",
			Transform: func(value interface{}, req *wire.Request) (interface{}, error) {
				msgs := value.([]wire.ChatMessage)
				out := make([]wire.ChatMessage, len(msgs))
				for i, m := range msgs {
					if m.Role == wire.RoleDeveloper {
						m.Role = wire.RoleSystem
					}
					out[i] = m
				}
				return out, nil
			},
		},
	}
	req := &wire.Request{Messages: []wire.ChatMessage{{Role: wire.RoleDeveloper, Content: "be terse"}}}

	e := NewEngine()
	result, err := e.Apply(table, req, nil)
	require.NoError(t, err)
	msgs := result.Body["messages"].([]wire.ChatMessage)
	assert.Equal(t, wire.RoleSystem, msgs[0].Role)
}

func TestApply_CapabilitiesDropsUnsupportedField(t *testing.T) {
	table := dialect.ParameterTable{
		"frequency_penalty": {Param: "parameters.frequency_penalty", Default: 0.0},
	}
	req := &wire.Request{}
	caps := &Capabilities{Unsupported: map[string]string{"frequency_penalty": "model does not support frequency_penalty"}}

	e := NewEngine()
	result, err := e.Apply(table, req, caps)
	require.NoError(t, err)
	assert.Empty(t, result.Body)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, "frequency_penalty", result.Dropped[0].Field)
}

func TestApply_CapabilitiesRenamesLegacyField(t *testing.T) {
	table := dialect.ParameterTable{
		"max_tokens": {Param: "max_tokens", Default: 256},
	}
	req := &wire.Request{}
	caps := &Capabilities{Renamed: map[string]string{"max_tokens": "max_completion_tokens"}}

	e := NewEngine()
	result, err := e.Apply(table, req, caps)
	require.NoError(t, err)
	assert.Equal(t, 256, result.Body["max_completion_tokens"])
	assert.NotContains(t, result.Body, "max_tokens")
}

func TestWriteDottedPath_CreatesIntermediateMaps(t *testing.T) {
	body := make(map[string]interface{})
	writeDottedPath(body, "inputs.0.data", "value")
	inputs := body["inputs"].(map[string]interface{})
	zero := inputs["0"].(map[string]interface{})
	assert.Equal(t, "value", zero["data"])
}
