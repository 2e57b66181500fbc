// Package vertex implements the Dialect for Google Vertex AI's generateContent
// API. Unlike every other dialect, its bearer token is a short-lived OAuth2
// access token rather than a static API key; this dialect only builds the
// request/response shapes and expects Target.APIKey to already hold a valid
// token (refreshed by the caller's credential source, e.g. a service
// account token source) since none of the example repos in this corpus
// carry a Vertex-specific SDK to ground a refresh flow on - the gateway
// therefore treats Vertex auth as "caller-supplied bearer token", the
// thinnest correct integration rather than guessing at a token refresh
// design with no grounding.
package vertex

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "vertex"

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *content           `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Dialect implements dialect.Dialect for Vertex AI's generateContent API.
type Dialect struct {
	ProjectID string
	Location  string
}

// New returns the Vertex dialect for a project/location pair. Both may also
// be supplied per-target via ExtraFields, which take precedence.
func New(projectID, location string) *Dialect {
	if location == "" {
		location = "us-central1"
	}
	return &Dialect{ProjectID: projectID, Location: location}
}

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	location := d.location(target)
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", location), nil
}

func (d *Dialect) location(target dialect.Target) string {
	if l, ok := target.ExtraFields["location"]; ok && l != "" {
		return l
	}
	return d.Location
}

func (d *Dialect) project(target dialect.Target) string {
	if p, ok := target.ExtraFields["project_id"]; ok && p != "" {
		return p
	}
	return d.ProjectID
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("vertex: a valid OAuth2 access token is required")
	}
	return map[string]string{
		"Authorization": "Bearer " + target.APIKey,
		"Content-Type":  "application/json",
	}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		return fmt.Sprintf("/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			d.project(target), d.location(target), target.Model), nil
	default:
		return "", fmt.Errorf("vertex: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		zero, one := 0.0, 1.0
		return dialect.ParameterTable{
			"messages":    {Param: "contents", Required: true, Transform: transformContents},
			"system":      {Param: "systemInstruction", Transform: transformSystemInstruction},
			"temperature": {Param: "generationConfig.temperature", Min: &zero, Max: &one},
			"top_p":       {Param: "generationConfig.topP", Min: &zero, Max: &one},
			"max_tokens":  {Param: "generationConfig.maxOutputTokens"},
			"stop":        {Param: "generationConfig.stopSequences"},
		}
	default:
		return nil
	}
}

func transformContents(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}
	out := make([]content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			continue
		}
		role := "user"
		if m.Role == wire.RoleAssistant {
			role = "model"
		}
		out = append(out, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	return out, nil
}

func transformSystemInstruction(value interface{}, req *wire.Request) (interface{}, error) {
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
	return content{Role: "system", Parts: []part{{Text: system}}}, nil
}

func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &dialect.CanonicalError{Message: "malformed response body", Provider: ProviderName, Status: 502, Raw: string(body)}
	}
	if len(resp.Candidates) == 0 {
		return nil, &dialect.CanonicalError{Message: "response contained no candidates", Provider: ProviderName, Status: 502}
	}

	choices := make([]wire.Choice, len(resp.Candidates))
	for i, c := range resp.Candidates {
		var text string
		for _, p := range c.Content.Parts {
			text += p.Text
		}
		choices[i] = wire.Choice{
			Index:        i,
			Message:      &wire.ChatMessage{Role: wire.RoleAssistant, Content: text},
			FinishReason: normalizeFinishReason(c.FinishReason),
		}
	}

	var usage *wire.Usage
	if resp.UsageMetadata != nil {
		usage = &wire.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return &wire.Response{
		ID:       fmt.Sprintf("vertex-%d", time.Now().UnixNano()),
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    req.Model,
		Provider: ProviderName,
		Choices:  choices,
		Usage:    usage,
	}, nil
}

func normalizeFinishReason(reason string) wire.FinishReason {
	switch reason {
	case "STOP":
		return wire.FinishStop
	case "MAX_TOKENS":
		return wire.FinishLength
	case "SAFETY", "RECITATION":
		return wire.FinishContentFilter
	default:
		return wire.FinishStop
	}
}

func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("vertex: malformed stream chunk: %w", err)
	}
	deltas := make([]wire.ChoiceDelta, 0, len(resp.Candidates))
	for i, c := range resp.Candidates {
		var text string
		for _, p := range c.Content.Parts {
			text += p.Text
		}
		var role wire.Role
		if !state.RoleEmitted {
			role = wire.RoleAssistant
			state.RoleEmitted = true
		}
		deltas = append(deltas, wire.ChoiceDelta{Index: i, Role: role, Content: text, FinishReason: normalizeFinishReason(c.FinishReason)})
	}
	return []*wire.Chunk{{ID: state.FallbackID, Object: "chat.completion.chunk", Provider: ProviderName, Choices: deltas}}, nil
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
	}
	return &dialect.CanonicalError{Message: e.Error.Message, Type: e.Error.Status, Status: status, Provider: ProviderName, Raw: e}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema {
	return map[string]dialect.FieldSchema{
		"project_id": {Required: true, Description: "GCP project id"},
		"location":   {Required: false, Description: "Vertex region, defaults to us-central1"},
	}
}

func (d *Dialect) IsAPIKeyRequired() bool { return true }
