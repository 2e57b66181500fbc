package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/transform"
	"github.com/relaymind/relaymind/pkg/wire"
)

func TestDialect_EndpointRoutesChatComplete(t *testing.T) {
	d := New()
	ep, err := d.Endpoint(&wire.Request{Function: wire.FunctionChatComplete}, dialect.Target{})
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", ep)
}

func TestDialect_HeadersRequireAPIKey(t *testing.T) {
	d := New()
	_, err := d.Headers(dialect.Target{}, wire.FunctionChatComplete)
	require.Error(t, err)

	headers, err := d.Headers(dialect.Target{APIKey: "sk-test"}, wire.FunctionChatComplete)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", headers["Authorization"])
}

func TestParameterTable_AppliesThroughTransformEngine(t *testing.T) {
	d := New()
	table := d.ParameterTable(wire.FunctionChatComplete)
	require.NotNil(t, table)

	req := &wire.Request{
		Model:    "gpt-4o",
		Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}},
	}

	e := transform.NewEngine()
	result, err := e.Apply(table, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", result.Body["model"])
	assert.Equal(t, false, result.Body["stream"])
}

func TestResponseTransform_NormalizesChoices(t *testing.T) {
	d := New()
	body := []byte(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
	}`)
	resp, cerr := d.ResponseTransform(body, 200, nil, false, &wire.Request{})
	require.Nil(t, cerr)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, wire.FinishStop, resp.Choices[0].FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestResponseTransform_ErrorStatusGoesThroughErrorTransform(t *testing.T) {
	d := New()
	body := []byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	resp, cerr := d.ResponseTransform(body, 401, nil, false, &wire.Request{})
	assert.Nil(t, resp)
	require.NotNil(t, cerr)
	assert.Equal(t, "invalid api key", cerr.Message)
}

func TestStreamChunkTransform_UsesFallbackIDWhenUpstreamOmitsIt(t *testing.T) {
	d := New()
	state := dialect.NewStreamState("fallback-id")
	chunks, err := d.StreamChunkTransform([]byte(`{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"hi"}}]}`), state, false, &wire.Request{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "fallback-id", chunks[0].ID)
	assert.Equal(t, "hi", chunks[0].Choices[0].Content)
}
