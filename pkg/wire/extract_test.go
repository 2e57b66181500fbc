package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMessages_Chat(t *testing.T) {
	req := &Request{
		Function: FunctionChatComplete,
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	}
	msgs, err := ExtractMessages(req)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestExtractMessages_CompletionPromptString(t *testing.T) {
	req := &Request{Function: FunctionComplete, Prompt: "summarize this"}
	msgs, err := ExtractMessages(req)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "summarize this", msgs[0].Content)
}

func TestExtractMessages_CompletionPromptList(t *testing.T) {
	req := &Request{Function: FunctionComplete, Prompt: []string{"a", "b"}}
	msgs, err := ExtractMessages(req)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestExtractMessages_ResponsesFunctionCallRoundtrip(t *testing.T) {
	req := &Request{
		Function: FunctionCreateModelResponse,
		Input: []ResponsesInputItem{
			{Type: "message", Role: RoleUser, Content: "what's the weather?"},
			{Type: "function_call", CallID: "abc123", Name: "get_weather", Arguments: `{"city":"nyc"}`},
			{Type: "function_call_output", CallID: "abc123", Output: `{"temp":72}`},
		},
	}
	msgs, err := ExtractMessages(req)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, RoleUser, msgs[0].Role)

	assert.Equal(t, RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	call := msgs[1].ToolCalls[0]
	assert.Equal(t, "get_weather", call.Function.Name)

	assert.Equal(t, RoleTool, msgs[2].Role)
	assert.Equal(t, call.ID, msgs[2].ToolCallID, "function_call and function_call_output must share the remapped id")
	assert.Equal(t, `{"temp":72}`, msgs[2].Content)
}

func TestExtractMessages_MCPCallWithoutOutputReportsSuccess(t *testing.T) {
	req := &Request{
		Function: FunctionCreateModelResponse,
		Input: []ResponsesInputItem{
			{Type: "mcp_call", CallID: "mcp1", MCPTool: "search", MCPInput: `{"q":"go"}`},
		},
	}
	msgs, err := ExtractMessages(req)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, RoleTool, msgs[1].Role)
	assert.Equal(t, "success", msgs[1].Content)
	assert.Equal(t, msgs[0].ToolCalls[0].ID, msgs[1].ToolCallID)
}

func TestExtractMessages_EmptyInputIsError(t *testing.T) {
	req := &Request{Function: FunctionCreateModelResponse}
	_, err := ExtractMessages(req)
	require.Error(t, err)
}

func TestExtractMessages_UnsupportedItemType(t *testing.T) {
	req := &Request{
		Function: FunctionCreateModelResponse,
		Input:    []ResponsesInputItem{{Type: "unknown"}},
	}
	_, err := ExtractMessages(req)
	require.Error(t, err)
}
