// Package bedrock implements the Dialect for AWS Bedrock's Converse API.
// Bedrock does not fit the plain HTTP-POST-with-bearer-token shape every
// other dialect uses: its requests are SigV4-signed. Client (see
// dispatch.go) sends non-streaming Converse calls through the AWS SDK's
// bedrockruntime client and builds the canonical Response with
// TransformConverseOutput. The Dialect methods cover the rest of the
// contract: ParameterTable builds the Converse body, BaseURL/Headers
// describe the SDK's regional endpoint without any auth header, and
// ResponseTransform/StreamChunkTransform do not decode raw HTTP bodies.
// The pipeline's dispatcher does not call Client; it sends requests for
// this dialect over its generic HTTP path like any other.
package bedrock

import (
	"fmt"
	"time"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "bedrock"

// Dialect implements dialect.Dialect for AWS Bedrock's Converse API.
type Dialect struct {
	Region string
}

// New returns the Bedrock dialect for a region. Region defaults to
// "us-east-1" when empty, matching the AWS SDK's own fallback chain once
// config and environment are exhausted.
func New(region string) *Dialect {
	if region == "" {
		region = "us-east-1"
	}
	return &Dialect{Region: region}
}

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	region := d.Region
	if r, ok := target.ExtraFields["region"]; ok && r != "" {
		region = r
	}
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region), nil
}

// Headers returns an empty map: authentication is performed by the AWS
// SDK's request signer using credentials resolved from the target's
// extra fields (access_key_id/secret_access_key) or the ambient credential
// chain, not a static header.
func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	return map[string]string{}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		return fmt.Sprintf("/model/%s/converse", target.Model), nil
	default:
		return "", fmt.Errorf("bedrock: unsupported function %q", req.Function)
	}
}

func (d *Dialect) ParameterTable(function wire.FunctionName) dialect.ParameterTable {
	switch function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete, wire.FunctionCreateModelResponse:
		zero, one := 0.0, 1.0
		return dialect.ParameterTable{
			"model":       {Param: "modelId", Required: true},
			"messages":    {Param: "messages", Required: true, Transform: transformMessages},
			"system":      {Param: "system", Transform: transformSystem},
			"max_tokens":  {Param: "inferenceConfig.maxTokens", Default: 1000},
			"temperature": {Param: "inferenceConfig.temperature", Min: &zero, Max: &one},
			"top_p":       {Param: "inferenceConfig.topP", Min: &zero, Max: &one},
			"stop":        {Param: "inferenceConfig.stopSequences"},
		}
	default:
		return nil
	}
}

// converseMessage mirrors the shape the Converse API's types.Message takes
// once the SDK's union content blocks are flattened to plain text, which is
// all the canonical model currently carries.
type converseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func transformMessages(value interface{}, req *wire.Request) (interface{}, error) {
	msgs, ok := value.([]wire.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("expected []wire.ChatMessage")
	}
	out := make([]converseMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == wire.RoleSystem || m.Role == wire.RoleDeveloper {
			continue
		}
		role := string(m.Role)
		if m.Role == wire.RoleTool {
			role = "user"
		}
		out = append(out, converseMessage{Role: role, Content: m.Content})
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

// ConverseOutput is the minimal shape Client.Converse populates directly
// from the SDK's *bedrockruntime.ConverseOutput, bypassing JSON entirely;
// TransformConverseOutput turns it into a canonical Response.
type ConverseOutput struct {
	Content          string
	StopReason       string
	InputTokens      int
	OutputTokens     int
}

// TransformConverseOutput builds a canonical Response directly from a
// decoded Converse result; Client.Converse returns its result.
func TransformConverseOutput(out ConverseOutput, model string, req *wire.Request) *wire.Response {
	return &wire.Response{
		ID:       fmt.Sprintf("bedrock-%d", time.Now().UnixNano()),
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    model,
		Provider: ProviderName,
		Choices: []wire.Choice{{
			Index:        0,
			Message:      &wire.ChatMessage{Role: wire.RoleAssistant, Content: out.Content},
			FinishReason: normalizeStopReason(out.StopReason),
		}},
		Usage: &wire.Usage{
			PromptTokens:     out.InputTokens,
			CompletionTokens: out.OutputTokens,
			TotalTokens:      out.InputTokens + out.OutputTokens,
		},
	}
}

func normalizeStopReason(reason string) wire.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence", "complete":
		return wire.FinishStop
	case "max_tokens":
		return wire.FinishLength
	case "tool_use":
		return wire.FinishToolCalls
	default:
		return wire.FinishStop
	}
}

// ResponseTransform does not decode a raw HTTP success body: for status >=
// 400 it returns ErrorTransform's error, and for any other status a 501
// CanonicalError naming TransformConverseOutput, which handles the typed
// SDK result instead.
func (d *Dialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, d.ErrorTransform(body, status)
	}
	return nil, &dialect.CanonicalError{Message: "bedrock: raw HTTP response transform not supported, use TransformConverseOutput", Provider: ProviderName, Status: 501}
}

// StreamChunkTransform always returns an error: raw SSE payloads are not
// decoded, and this package has no adapter for the SDK's Converse event
// stream.
func (d *Dialect) StreamChunkTransform(raw []byte, state *dialect.StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	return nil, fmt.Errorf("bedrock: raw SSE stream transform not supported")
}

func (d *Dialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	return &dialect.CanonicalError{Message: string(body), Provider: ProviderName, Status: status, Raw: string(body)}
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema {
	return map[string]dialect.FieldSchema{
		"region":            {Required: false, Description: "AWS region, defaults to the dialect's configured region"},
		"access_key_id":     {Required: false, Description: "static AWS access key; omit to use the ambient credential chain"},
		"secret_access_key": {Required: false, Description: "static AWS secret key; omit to use the ambient credential chain"},
	}
}

func (d *Dialect) IsAPIKeyRequired() bool { return false }
