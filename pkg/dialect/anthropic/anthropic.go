// Package anthropic implements the Dialect for Anthropic's Messages API,
// whose wire shape differs from OpenAI's in three ways the parameter table
// and transforms absorb: system messages are a top-level field rather than
// a role in the message list, max_tokens is required rather than optional,
// and tool invocations live in typed content blocks rather than a
// tool_calls array.
package anthropic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "anthropic"

const defaultMaxTokens = 4096

type message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type responseBody struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type streamEvent struct {
	Type string `json:"type"`

	Index        int           `json:"index,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`
	Delta        *delta        `json:"delta,omitempty"`
	Usage        *usage        `json:"usage,omitempty"`
}

type delta struct {
	Type         string `json:"type,omitempty"`
	Text         string `json:"text,omitempty"`
	PartialJSON  string `json:"partial_json,omitempty"`
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Dialect implements dialect.Dialect for Anthropic's Messages API.
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	base := target.BaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}
	return dialect.ValidateBaseURL(base)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	version := "2023-06-01"
	if v, ok := target.ExtraFields["anthropic_version"]; ok && v != "" {
		version = v
	}
	return map[string]string{
		"x-api-key":         target.APIKey,
		"anthropic-version": version,
		"Content-Type":      "application/json",
	}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		return "/v1/messages", nil
	default:
		return "", fmt.Errorf("anthropic: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		return chatParameterTable()
	default:
		return nil
	}
}

func chatParameterTable() dialect.ParameterTable {
	zero, one := 0.0, 1.0
	return dialect.ParameterTable{
		"model":       {Param: "model", Required: true},
		"messages":    {Param: "messages", Required: true, Transform: transformMessages},
		"system":      {Param: "system", Transform: transformSystem},
		"max_tokens":  {Param: "max_tokens", Default: defaultMaxTokens, Required: true},
		"temperature": {Param: "temperature", Min: &zero, Max: &one},
		"top_p":       {Param: "top_p", Min: &zero, Max: &one},
		"stop":        {Param: "stop_sequences"},
		"stream":      {Param: "stream", Default: false},
		"tools":       {Param: "tools", Transform: transformTools},
	}
}

// transformMessages drops any system-role messages (Anthropic carries system
// content in a top-level field, extracted separately by transformSystem)
// and requires the remaining sequence to start with a user turn and
// strictly alternate roles.
func transformMessages(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}

	out := make([]message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			continue
		}
		role := string(m.Role)
		if m.Role == wire.RoleTool {
			role = "user"
		}
		out = append(out, message{Role: role, Content: m.Content})
	}

	if err := validateAlternation(out); err != nil {
		return nil, err
	}
	return out, nil
}

func transformSystem(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, nil
	}
	var system string
	for _, m := range msgs {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			if system != "" {
				system += "\n"
			}
			system += m.Content
		}
	}
	if system == "" {
		return nil, nil
	}
	return system, nil
}

func transformTools(value interface{}, req *wire.Request) (interface{}, error) {
	tools, ok := value.([]wire.Tool)
	if !ok || len(tools) == 0 {
		return nil, nil
	}
	out := make([]tool, len(tools))
	for i, t := range tools {
		out[i] = tool{Name: t.Function.Name, Description: t.Function.Description, InputSchema: t.Function.Parameters}
	}
	return out, nil
}

func validateAlternation(messages []message) error {
	if len(messages) == 0 {
		return nil
	}
	if messages[0].Role != "user" {
		return &dialect.CanonicalError{Message: "first message must be from user", Type: "validation", Provider: ProviderName, Status: 422}
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].Role == messages[i-1].Role {
			return &dialect.CanonicalError{
				Message:  fmt.Sprintf("messages must alternate between user and assistant, found consecutive %s messages at index %d", messages[i].Role, i),
				Type:     "validation",
				Provider: ProviderName,
				Status:   422,
			}
		}
	}
	return nil
}

func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}

	var resp responseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &dialect.CanonicalError{Message: "malformed response body", Provider: ProviderName, Status: 502, Raw: string(body)}
	}

	var content string
	var toolCalls []wire.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, &dialect.CanonicalError{Message: "failed to marshal tool input", Provider: ProviderName, Status: 502}
			}
			toolCalls = append(toolCalls, wire.ToolCall{
				ID:       block.ID,
				Type:     "function",
				Function: wire.FunctionCall{Name: block.Name, Arguments: string(args)},
			})
		}
	}

	finish := normalizeStopReason(resp.StopReason)

	return &wire.Response{
		ID:       resp.ID,
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    resp.Model,
		Provider: ProviderName,
		Choices: []wire.Choice{{
			Index: 0,
			Message: &wire.ChatMessage{
				Role:      wire.RoleAssistant,
				Content:   content,
				ToolCalls: toolCalls,
			},
			FinishReason: finish,
		}},
		Usage: &wire.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func normalizeStopReason(reason string) wire.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return wire.FinishStop
	case "max_tokens":
		return wire.FinishLength
	case "tool_use":
		return wire.FinishToolCalls
	default:
		return wire.FinishStop
	}
}

// StreamChunkTransform folds Anthropic's multi-event SSE protocol
// (message_start / content_block_start / content_block_delta /
// content_block_stop / message_delta / message_stop) into the single
// canonical Chunk shape. Only events that carry caller-visible content
// produce a Chunk; bookkeeping events return an empty slice.
func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("anthropic: malformed stream event: %w", err)
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta == nil {
			return nil, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return []*wire.Chunk{d.textChunk(state, ev.Delta.Text)}, nil
		case "input_json_delta":
			name := state.ToolCallNames[ev.Index]
			return []*wire.Chunk{{
				ID:       state.FallbackID,
				Object:   "chat.completion.chunk",
				Provider: ProviderName,
				Choices: []wire.ChoiceDelta{{
					Index:     0,
					ToolCalls: []wire.ToolCall{{Type: "function", Function: wire.FunctionCall{Name: name, Arguments: ev.Delta.PartialJSON}}},
				}},
			}}, nil
		}
		return nil, nil

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			state.ToolCallNames[ev.Index] = ev.ContentBlock.Name
		}
		return nil, nil

	case "message_delta":
		if ev.Delta == nil {
			return nil, nil
		}
		return []*wire.Chunk{{
			ID:       state.FallbackID,
			Object:   "chat.completion.chunk",
			Provider: ProviderName,
			Choices:  []wire.ChoiceDelta{{Index: 0, FinishReason: normalizeStopReason(ev.Delta.StopReason)}},
		}}, nil

	default:
		return nil, nil
	}
}

func (d *Dialect) textChunk(state *dialect.StreamState, text string) *wire.Chunk {
	var role wire.Role
	if !state.RoleEmitted {
		role = wire.RoleAssistant
		state.RoleEmitted = true
	}
	return &wire.Chunk{
		ID:       state.FallbackID,
		Object:   "chat.completion.chunk",
		Provider: ProviderName,
		Choices:  []wire.ChoiceDelta{{Index: 0, Role: role, Content: text}},
	}
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
	}
	return &dialect.CanonicalError{Message: e.Error.Message, Type: e.Error.Type, Status: status, Provider: ProviderName, Raw: e}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema {
	return map[string]dialect.FieldSchema{
		"anthropic_version": {Required: false, Description: "anthropic-version header override, defaults to 2023-06-01"},
	}
}

func (d *Dialect) IsAPIKeyRequired() bool { return true }
