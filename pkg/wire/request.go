package wire

import "fmt"

// InvalidRequestError is returned by parsing/extraction helpers when a
// canonical request is missing a field required by its function.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Message)
	}
	return fmt.Sprintf("invalid request: field %q: %s", e.Field, e.Message)
}

// ResponsesInputItem is one entry of a Responses-API `input` array. Exactly
// one of the typed fields is populated, selected by Type.
type ResponsesInputItem struct {
	Type string `json:"type"`

	// Type == "message"
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// Type == "function_call"
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// Type == "function_call_output"
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`

	// Type == "mcp_call"
	MCPServer string `json:"server_label,omitempty"`
	MCPTool   string `json:"tool_name,omitempty"`
	MCPInput  string `json:"arguments,omitempty"`
}

// Request is the canonical, discriminated request envelope. Function selects
// which of the typed bodies is populated; all providers consume the same
// shape regardless of which HTTP route produced it.
type Request struct {
	Function FunctionName `json:"-"`

	// Common fields shared by every function.
	Model string `json:"model"`
	Seed  *int   `json:"seed,omitempty"`

	// Chat / Responses conversation input.
	Messages []ChatMessage        `json:"messages,omitempty"`
	Input    []ResponsesInputItem `json:"input,omitempty"`

	// Completion-style prompt: either a single string or a list of strings.
	Prompt interface{} `json:"prompt,omitempty"`

	Temperature      *float64               `json:"temperature,omitempty"`
	TopP             *float64               `json:"top_p,omitempty"`
	MaxTokens        *int                   `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64               `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64               `json:"presence_penalty,omitempty"`
	Stop             []string               `json:"stop,omitempty"`
	Stream           bool                   `json:"stream,omitempty"`
	Tools            []Tool                 `json:"tools,omitempty"`
	ToolChoice       interface{}            `json:"tool_choice,omitempty"`
	ReasoningEffort  string                 `json:"reasoning_effort,omitempty"`
	User             string                 `json:"user,omitempty"`

	// EMBED
	EmbedInput interface{} `json:"input_text,omitempty"`

	// GENERATE_IMAGE
	ImagePrompt string `json:"image_prompt,omitempty"`
	ImageSize   string `json:"size,omitempty"`
	ImageCount  int    `json:"n,omitempty"`

	// MODERATE
	ModerationInput interface{} `json:"moderation_input,omitempty"`

	// AdditionalParams holds any free-form long-tail fields the canonical
	// model does not name explicitly. The transformer (pkg/transform) may
	// read/write into it via dotted paths.
	AdditionalParams map[string]interface{} `json:"additional_params,omitempty"`

	// Metadata carries request context not sent upstream (trace ids, the
	// system_prompt_variables map used by the optimizer, strict compliance
	// flag, etc).
	Metadata map[string]string `json:"-"`
}

// Validate performs the minimal structural checks C1 owns: presence of a
// model and of function-appropriate content.
func (r *Request) Validate() error {
	if r.Model == "" {
		return &InvalidRequestError{Field: "model", Message: "model is required"}
	}
	switch r.Function {
	case FunctionChatComplete, FunctionStreamChatComplete:
		if len(r.Messages) == 0 {
			return &InvalidRequestError{Field: "messages", Message: "at least one message is required"}
		}
	case FunctionComplete, FunctionStreamComplete:
		if r.Prompt == nil {
			return &InvalidRequestError{Field: "prompt", Message: "prompt is required"}
		}
	case FunctionCreateModelResponse:
		if len(r.Input) == 0 && len(r.Messages) == 0 {
			return &InvalidRequestError{Field: "input", Message: "input is required"}
		}
	case FunctionEmbed:
		if r.EmbedInput == nil {
			return &InvalidRequestError{Field: "input_text", Message: "input is required"}
		}
	case FunctionModerate:
		if r.ModerationInput == nil {
			return &InvalidRequestError{Field: "moderation_input", Message: "input is required"}
		}
	}
	return nil
}
