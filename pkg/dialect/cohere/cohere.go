// Package cohere implements the Dialect for Cohere's Chat API, whose shape
// separates the latest user turn (message) from the prior turns (chat_history)
// rather than carrying one flat message list.
package cohere

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "cohere"

type chatTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type chatRequestBody struct {
	Message     string     `json:"message"`
	ChatHistory []chatTurn `json:"chat_history,omitempty"`
	Preamble    string     `json:"preamble,omitempty"`
}

type chatResponseBody struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Meta         *meta  `json:"meta,omitempty"`
}

type meta struct {
	Tokens struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"tokens"`
}

type streamEvent struct {
	EventType    string `json:"event_type"`
	Text         string `json:"text,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Dialect implements dialect.Dialect for Cohere's Chat API.
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	base := target.BaseURL
	if base == "" {
		base = "https://api.cohere.ai"
	}
	return dialect.ValidateBaseURL(base)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("cohere: api key is required")
	}
	return map[string]string{
		"Authorization": "Bearer " + target.APIKey,
		"Content-Type":  "application/json",
	}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		return "/v1/chat", nil
	case wire.FunctionEmbed:
		return "/v1/embed", nil
	default:
		return "", fmt.Errorf("cohere: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		zero, one := 0.0, 1.0
		return dialect.ParameterTable{
			"model":       {Param: "model", Required: true},
			"messages":    {Param: "message", Required: true, Transform: transformLatestMessage},
			"history":     {Param: "chat_history", Transform: transformHistory},
			"system":      {Param: "preamble", Transform: transformPreamble},
			"temperature": {Param: "temperature", Min: &zero, Max: &one},
			"max_tokens":  {Param: "max_tokens"},
			"stop":        {Param: "stop_sequences"},
		}
	default:
		return nil
	}
}

func nonSystemMessages(msgs []wire.ChatMessage) []wire.ChatMessage {
	out := make([]wire.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != wire.RoleSystem && m.Role != wire.RoleDeveloper {
			out = append(out, m)
		}
	}
	return out
}

func transformLatestMessage(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}
	turns := nonSystemMessages(msgs)
	if len(turns) == 0 {
		return nil, &dialect.CanonicalError{Message: "at least one user message is required", Type: "validation", Provider: ProviderName, Status: 422}
	}
	return turns[len(turns)-1].Content, nil
}

func transformHistory(value interface{}, req *wire.Request) (interface{}, error) {
	turns := nonSystemMessages(req.Messages)
	if len(turns) <= 1 {
		return nil, nil
	}
	out := make([]chatTurn, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "USER"
		if m.Role == wire.RoleAssistant {
			role = "CHATBOT"
		}
		out = append(out, chatTurn{Role: role, Message: m.Content})
	}
	return out, nil
}

func transformPreamble(value interface{}, req *wire.Request) (interface{}, error) {
	var system string
	for _, m := range req.Messages {
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

func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}
	var resp chatResponseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &dialect.CanonicalError{Message: "malformed response body", Provider: ProviderName, Status: 502, Raw: string(body)}
	}

	var usage *wire.Usage
	if resp.Meta != nil {
		usage = &wire.Usage{
			PromptTokens:     resp.Meta.Tokens.InputTokens,
			CompletionTokens: resp.Meta.Tokens.OutputTokens,
			TotalTokens:      resp.Meta.Tokens.InputTokens + resp.Meta.Tokens.OutputTokens,
		}
	}

	return &wire.Response{
		ID:       fmt.Sprintf("cohere-%d", time.Now().UnixNano()),
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    req.Model,
		Provider: ProviderName,
		Choices: []wire.Choice{{
			Index:        0,
			Message:      &wire.ChatMessage{Role: wire.RoleAssistant, Content: resp.Text},
			FinishReason: normalizeFinishReason(resp.FinishReason),
		}},
		Usage: usage,
	}, nil
}

func normalizeFinishReason(reason string) wire.FinishReason {
	switch reason {
	case "COMPLETE":
		return wire.FinishStop
	case "MAX_TOKENS":
		return wire.FinishLength
	default:
		return wire.FinishStop
	}
}

func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("cohere: malformed stream event: %w", err)
	}
	if ev.EventType != "text-generation" && ev.EventType != "stream-end" {
		return nil, nil
	}
	var role wire.Role
	if !state.RoleEmitted && ev.Text != "" {
		role = wire.RoleAssistant
		state.RoleEmitted = true
	}
	delta := wire.ChoiceDelta{Index: 0, Role: role, Content: ev.Text}
	if ev.EventType == "stream-end" {
		delta.FinishReason = normalizeFinishReason(ev.FinishReason)
	}
	return []*wire.Chunk{{ID: state.FallbackID, Object: "chat.completion.chunk", Provider: ProviderName, Choices: []wire.ChoiceDelta{delta}}}, nil
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
	}
	return &dialect.CanonicalError{Message: e.Message, Provider: ProviderName, Status: status, Raw: e}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }

func (d *Dialect) IsAPIKeyRequired() bool { return true }
