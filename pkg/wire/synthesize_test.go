package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeChunks_ChunksContentAndTerminatesWithDone(t *testing.T) {
	resp := &Response{
		ID: "r1", Model: "gpt-4", Provider: "openai",
		Choices: []Choice{{Index: 0, Message: &ChatMessage{Role: RoleAssistant, Content: "hello!"}, FinishReason: FinishStop}},
	}
	chunks := SynthesizeChunks(resp, "fallback")

	require.NotEmpty(t, chunks)
	assert.True(t, chunks[len(chunks)-1].Done)

	var rebuilt string
	for _, c := range chunks {
		if c.Done || len(c.Choices) == 0 {
			continue
		}
		rebuilt += c.Choices[0].Content
	}
	assert.Equal(t, "hello!", rebuilt)
}

func TestSynthesizeChunks_ToolCallEmitsNameThenArgsPair(t *testing.T) {
	resp := &Response{
		ID: "r1", Model: "gpt-4",
		Choices: []Choice{{Index: 0, Message: &ChatMessage{
			Role:      RoleAssistant,
			ToolCalls: []ToolCall{{ID: "call_1", Type: "function", Function: FunctionCall{Name: "get_weather", Arguments: `{"city":"nyc"}`}}},
		}, FinishReason: FinishToolCalls}},
	}
	chunks := SynthesizeChunks(resp, "fallback")

	var sawName, sawArgs bool
	for _, c := range chunks {
		if len(c.Choices) == 0 || len(c.Choices[0].ToolCalls) == 0 {
			continue
		}
		tc := c.Choices[0].ToolCalls[0]
		if tc.Function.Name == "get_weather" {
			sawName = true
		}
		if tc.Function.Arguments == `{"city":"nyc"}` {
			sawArgs = true
		}
	}
	assert.True(t, sawName)
	assert.True(t, sawArgs)
}

func TestAccumulateChunks_RebuildsResponseFromDeltas(t *testing.T) {
	chunks := []*Chunk{
		{ID: "r1", Model: "gpt-4", Choices: []ChoiceDelta{{Index: 0, Role: RoleAssistant, Content: "he"}}},
		{ID: "r1", Model: "gpt-4", Choices: []ChoiceDelta{{Index: 0, Content: "llo"}}},
		{ID: "r1", Model: "gpt-4", Choices: []ChoiceDelta{{Index: 0, FinishReason: FinishStop}}},
		{Done: true},
	}
	resp, err := AccumulateChunks(chunks)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, FinishStop, resp.Choices[0].FinishReason)
}

func TestAccumulateChunks_EmptyInputErrors(t *testing.T) {
	_, err := AccumulateChunks(nil)
	require.Error(t, err)
}
