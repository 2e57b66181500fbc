// Package triton implements the Dialect for KServe-style inference servers
// (NVIDIA Triton's v2 predict protocol and compatible self-hosted runtimes).
// Unlike every chat-shaped dialect, Triton has no notion of messages: the
// prompt is wrapped into a named "inputs" array addressed by tensor name,
// and responses are unwrapped the same way. IsAPIKeyRequired is false since
// these are typically unauthenticated in-cluster deployments.
package triton

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "triton"

type inferInput struct {
	Name     string        `json:"name"`
	Shape    []int         `json:"shape"`
	Datatype string        `json:"datatype"`
	Data     []string      `json:"data"`
}

type inferOutput struct {
	Name     string   `json:"name"`
	Shape    []int    `json:"shape"`
	Datatype string   `json:"datatype"`
	Data     []string `json:"data"`
}

type inferResponse struct {
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	Outputs      []inferOutput `json:"outputs"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Dialect implements dialect.Dialect for KServe v2 inference servers.
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	if target.BaseURL == "" {
		return "", fmt.Errorf("triton: base_url is required")
	}
	return dialect.ValidateBaseURL(target.BaseURL)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	if target.APIKey != "" {
		headers["Authorization"] = "Bearer " + target.APIKey
	}
	return headers, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionComplete, wire.FunctionStreamComplete, wire.FunctionChatComplete, wire.FunctionStreamChatComplete:
		return fmt.Sprintf("/v2/models/%s/infer", target.Model), nil
	default:
		return "", fmt.Errorf("triton: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionComplete, wire.FunctionStreamComplete, wire.FunctionChatComplete, wire.FunctionStreamChatComplete:
		return dialect.ParameterTable{
			"prompt":   {Param: "inputs", Required: true, Transform: wrapPromptInput},
			"messages": {Param: "inputs", Transform: wrapMessagesInput},
		}
	default:
		return nil
	}
}

// wrapPromptInput wraps a plain prompt string into the KServe v2 "inputs"
// array, naming the tensor "prompt" the way the teacher's Triton-adjacent
// request bodies name a single text input.
func wrapPromptInput(value interface{}, req *wire.Request) (interface{}, error) {
	prompt, ok := value.(string)
	if !ok || prompt == "" {
		return nil, nil
	}
	return []inferInput{{Name: "prompt", Shape: []int{1}, Datatype: "BYTES", Data: []string{prompt}}}, nil
}

// wrapMessagesInput flattens chat messages into a single text tensor when
// no plain prompt was supplied, since KServe has no concept of message
// turns.
func wrapMessagesInput(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok || len(msgs) == 0 {
		return nil, nil
	}
	flattened := wire.UserVisibleText(msgs)
	return []inferInput{{Name: "prompt", Shape: []int{1}, Datatype: "BYTES", Data: []string{flattened}}}, nil
}

func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}
	var resp inferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &dialect.CanonicalError{Message: "malformed response body", Provider: ProviderName, Status: 502, Raw: string(body)}
	}
	var text string
	for _, out := range resp.Outputs {
		if len(out.Data) > 0 {
			text += out.Data[0]
		}
	}
	return &wire.Response{
		ID:       fmt.Sprintf("triton-%d", time.Now().UnixNano()),
		Object:   "text.completion",
		Created:  time.Now().Unix(),
		Model:    resp.ModelName,
		Provider: ProviderName,
		Choices:  []wire.Choice{{Index: 0, Text: text, FinishReason: wire.FinishStop}},
	}, nil
}

func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	return nil, fmt.Errorf("triton: streaming is not supported by the v2 infer protocol")
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
	}
	return &dialect.CanonicalError{Message: e.Error, Provider: ProviderName, Status: status, Raw: e}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }

func (d *Dialect) IsAPIKeyRequired() bool { return false }
