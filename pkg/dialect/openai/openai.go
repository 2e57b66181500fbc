// Package openai implements the Dialect for OpenAI and the many providers
// that copy its wire format verbatim. It is the reference dialect: the
// canonical wire model in pkg/wire is already shaped close to this one, so
// most of its parameter table is a direct field-for-field pass-through.
package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "openai"

type openAIMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type responseBody struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *usage         `json:"usage,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type streamDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   string `json:"param"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Dialect implements dialect.Dialect for the OpenAI chat/completions API.
type Dialect struct{}

// New returns the OpenAI dialect.
func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	base := target.BaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	return dialect.ValidateBaseURL(base)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	return map[string]string{
		"Authorization": "Bearer " + target.APIKey,
		"Content-Type":  "application/json",
	}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete:
		return "/v1/chat/completions", nil
	case wire.FunctionComplete, wire.FunctionStreamComplete:
		return "/v1/completions", nil
	case wire.FunctionCreateModelResponse:
		return "/v1/responses", nil
	case wire.FunctionEmbed:
		return "/v1/embeddings", nil
	case wire.FunctionGenerateImage:
		return "/v1/images/generations", nil
	case wire.FunctionModerate:
		return "/v1/moderations", nil
	case wire.FunctionCreateSpeech:
		return "/v1/audio/speech", nil
	case wire.FunctionCreateTranscription:
		return "/v1/audio/transcriptions", nil
	case wire.FunctionCreateTranslation:
		return "/v1/audio/translations", nil
	default:
		return "", fmt.Errorf("openai: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete:
		return chatParameterTable()
	case wire.FunctionEmbed:
		return dialect.ParameterTable{
			"model":      {Param: "model", Required: true},
			"embed_input": {Param: "input", Required: true},
		}
	default:
		return nil
	}
}

func chatParameterTable() dialect.ParameterTable {
	zero, one, two, negTwo := 0.0, 1.0, 2.0, -2.0
	return dialect.ParameterTable{
		"model":             {Param: "model", Required: true},
		"messages":          {Param: "messages", Required: true, Transform: transformMessages},
		"temperature":       {Param: "temperature", Min: &zero, Max: &two},
		"top_p":             {Param: "top_p", Min: &zero, Max: &one},
		"max_tokens":        {Param: "max_tokens"},
		"frequency_penalty": {Param: "frequency_penalty", Min: &negTwo, Max: &two},
		"presence_penalty":  {Param: "presence_penalty"},
		"stop":              {Param: "stop"},
		"stream":            {Param: "stream", Default: false},
		"tools":             {Param: "tools", Transform: transformTools},
		"tool_choice":       {Param: "tool_choice"},
		"seed":              {Param: "seed"},
		"user":              {Param: "user"},
	}
}

func transformMessages(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}
	out := make([]openAIMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openAIMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  toUpstreamToolCalls(m.ToolCalls),
		}
	}
	return out, nil
}

func transformTools(value interface{}, req *wire.Request) (interface{}, error) {
	tools, ok := value.([]wire.Tool)
	if !ok || len(tools) == 0 {
		return nil, nil
	}
	return tools, nil
}

func toUpstreamToolCalls(calls []wire.ToolCall) []toolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]toolCall, len(calls))
	for i, c := range calls {
		out[i] = toolCall{ID: c.ID, Type: c.Type, Function: functionCall(c.Function)}
	}
	return out
}

func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}

	var resp responseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &dialect.CanonicalError{Message: "malformed response body", Provider: ProviderName, Status: 502, Raw: string(body)}
	}
	if len(resp.Choices) == 0 {
		return nil, &dialect.CanonicalError{Message: "response contained no choices", Provider: ProviderName, Status: 502}
	}

	choices := make([]wire.Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = wire.Choice{
			Index: c.Index,
			Message: &wire.ChatMessage{
				Role:       wire.Role(c.Message.Role),
				Content:    c.Message.Content,
				ToolCalls:  fromUpstreamToolCalls(c.Message.ToolCalls),
				ToolCallID: c.Message.ToolCallID,
			},
			FinishReason: wire.FinishReason(c.FinishReason),
		}
	}

	var u *wire.Usage
	if resp.Usage != nil {
		u = &wire.Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens, TotalTokens: resp.Usage.TotalTokens}
	}

	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	return &wire.Response{
		ID:       resp.ID,
		Object:   resp.Object,
		Created:  created,
		Model:    resp.Model,
		Provider: ProviderName,
		Choices:  choices,
		Usage:    u,
	}, nil
}

func fromUpstreamToolCalls(calls []toolCall) []wire.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]wire.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = wire.ToolCall{ID: c.ID, Type: c.Type, Function: wire.FunctionCall(c.Function)}
	}
	return out
}

// StreamChunkTransform parses one already-unwrapped SSE `data:` payload
// (the caller has stripped the "data: " prefix and handles "[DONE]" itself).
func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	var sc streamChunk
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("openai: malformed stream chunk: %w", err)
	}

	id := sc.ID
	if id == "" {
		id = state.FallbackID
	}

	deltas := make([]wire.ChoiceDelta, len(sc.Choices))
	for i, c := range sc.Choices {
		deltas[i] = wire.ChoiceDelta{
			Index:        c.Index,
			Role:         wire.Role(c.Delta.Role),
			Content:      c.Delta.Content,
			ToolCalls:    fromUpstreamToolCalls(c.Delta.ToolCalls),
			FinishReason: wire.FinishReason(c.FinishReason),
		}
	}

	var u *wire.Usage
	if sc.Usage != nil {
		u = &wire.Usage{PromptTokens: sc.Usage.PromptTokens, CompletionTokens: sc.Usage.CompletionTokens, TotalTokens: sc.Usage.TotalTokens}
	}

	return []*wire.Chunk{{
		ID:       id,
		Object:   sc.Object,
		Created:  sc.Created,
		Model:    sc.Model,
		Provider: ProviderName,
		Choices:  deltas,
		Usage:    u,
	}}, nil
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
	}
	return &dialect.CanonicalError{
		Message:  e.Error.Message,
		Type:     e.Error.Type,
		Param:    e.Error.Param,
		Code:     e.Error.Code,
		Status:   status,
		Provider: ProviderName,
		Raw:      e,
	}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }

func (d *Dialect) IsAPIKeyRequired() bool { return true }
