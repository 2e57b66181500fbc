// Package azure implements the Dialect for Azure OpenAI Service, which
// speaks OpenAI's request/response shape but routes through a
// deployment-scoped path with an api-version query parameter and an
// api-key header instead of a bearer token.
package azure

import (
	"fmt"

	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/dialect/openai"
	"github.com/relaymind/relaymind/pkg/wire"
)

const ProviderName = "azure"

const defaultAPIVersion = "2024-06-01"

// Dialect wraps openai.Dialect, overriding URL/header/endpoint construction
// for Azure's deployment-based routing.
type Dialect struct {
	*openai.Dialect
}

func New() *Dialect { return &Dialect{Dialect: openai.New()} }

func (d *Dialect) Name() string { return ProviderName }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	if target.BaseURL == "" {
		return "", fmt.Errorf("azure: base_url (resource endpoint) is required")
	}
	return dialect.ValidateBaseURL(target.BaseURL)
}

func (d *Dialect) Headers(target dialect.Target, function wire.FunctionName) (map[string]string, error) {
	if target.APIKey == "" {
		return nil, fmt.Errorf("azure: api key is required")
	}
	return map[string]string{
		"api-key":      target.APIKey,
		"Content-Type": "application/json",
	}, nil
}

func (d *Dialect) Endpoint(req *wire.Request, target dialect.Target) (string, error) {
	deployment := target.ExtraFields["deployment"]
	if deployment == "" {
		deployment = target.Model
	}
	version := target.ExtraFields["api_version"]
	if version == "" {
		version = defaultAPIVersion
	}

	var path string
	switch req.Function {
	case wire.FunctionChatComplete, wire.FunctionStreamChatComplete:
		path = fmt.Sprintf("/openai/deployments/%s/chat/completions", deployment)
	case wire.FunctionEmbed:
		path = fmt.Sprintf("/openai/deployments/%s/embeddings", deployment)
	default:
		return "", fmt.Errorf("azure: unsupported function %q", req.Function)
	}
	return fmt.Sprintf("%s?api-version=%s", path, version), nil
}

func (d *Dialect) CustomFieldsSchema() map[string]dialect.FieldSchema {
	return map[string]dialect.FieldSchema{
		"deployment":  {Required: true, Description: "Azure OpenAI deployment name"},
		"api_version": {Required: false, Description: "api-version query parameter, defaults to " + defaultAPIVersion},
	}
}

func (d *Dialect) IsAPIKeyRequired() bool { return true }
