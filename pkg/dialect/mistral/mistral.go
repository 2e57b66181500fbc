// Package mistral implements the Dialect for La Plateforme's chat API,
// which is OpenAI-shaped except that it does not recognize a "developer"
// role - the parameter table's message transform remaps it to "system",
// the canonical example of a per-field transform named in the parameter
// table design.
package mistral

import (
	"fmt"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/dialect/openai"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "mistral"

type Dialect struct {
	*openai.Dialect
}

func New() *Dialect { return &Dialect{Dialect: openai.New()} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	base := target.BaseURL
	if base == "" {
		base = "https://api.mistral.ai"
	}
	return dialect.ValidateBaseURL(base)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("mistral: api key is required")
	}
	return map[string]string{
		"Authorization": "Bearer " + target.APIKey,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}, nil
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	table := d.Dialect.ParameterTable(function)
	if table == nil {
		return nil
	}
	if entry, ok := table["messages"]; ok {
		entry.Transform = remapDeveloperRole
		table["messages"] = entry
	}
	return table
}

// remapDeveloperRole maps the "developer" role introduced by newer OpenAI
// models onto "system", which is the only system-style role Mistral's API
// recognizes.
func remapDeveloperRole(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}
	out := make([]wire.ChatMessage, len(msgs))
	for i, m := range msgs {
		if m.Role == wire.RoleDeveloper {
			m.Role = wire.RoleSystem
		}
		out[i] = m
	}
	return remapMessagesToUpstream(out)
}

// remapMessagesToUpstream encodes messages with the same field set as the
// OpenAI dialect once roles have been normalized, since Mistral's chat
// message shape is otherwise identical.
func remapMessagesToUpstream(msgs []wire.ChatMessage) (interface{}, error) {
	req := &wire.Request{Messages: msgs}
	// openai's transformMessages is unexported, so openaiEncodeMessages
	// below is a local copy of its field mapping; the two are not linked and
	// a change to one is not reflected in the other.
	return openaiEncodeMessages(req.Messages), nil
}

type upstreamMessage struct {
	Role       string               `json:"role"`
	Content    string               `json:"content,omitempty"`
	Name       string               `json:"name,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolCalls  []wire.ToolCall      `json:"tool_calls,omitempty"`
}

func openaiEncodeMessages(msgs []wire.ChatMessage) []upstreamMessage {
	out := make([]upstreamMessage, len(msgs))
	for i, m := range msgs {
		out[i] = upstreamMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		}
	}
	return out
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }

func (d *Dialect) IsAPIKeyRequired() bool { return true }
