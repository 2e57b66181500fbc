// Package generic implements the Dialect for any OpenAI-compatible upstream
// (Ollama, LM Studio, vLLM, FastChat, Together, Groq, and the long tail of
// providers that copy OpenAI's wire format) by embedding the openai dialect
// and overriding only base URL resolution and API key requirement, mirroring
// how the teacher's generic provider adapter wraps its OpenAI adapter rather
// than reimplementing request/response transforms.
package generic

import (
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/dialect/openai"
	"github.com/relaymind/relaymind/pkg/wire"
)

// Dialect wraps openai.Dialect for providers with a custom, required base
// URL and an optional API key.
type Dialect struct {
	*openai.Dialect
	tag string
}

// New returns a generic dialect registered under tag (e.g. "ollama",
// "vllm", "together").
func New(tag string) *Dialect {
	return &Dialect{Dialect: openai.New(), tag: tag}
}

func (d *Dialect) Name() string { return d.tag }

func (d *Dialect) BaseURL(target dialect.Target) (string, error) {
	if target.BaseURL == "" {
		return "", &dialect.ErrInvalidProvider{Provider: d.tag}
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

func (d *Dialect) IsAPIKeyRequired() bool { return false }
