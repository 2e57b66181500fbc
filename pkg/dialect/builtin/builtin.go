// Package builtin assembles the default dialect.Registry from every dialect
// implementation shipped with the gateway. It exists as a separate package
// from pkg/dialect so that individual dialect packages can import the base
// contract without a cycle back through a registry that imports all of them.
package builtin

import (
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/dialect/anthropic"
	"github.com/relaymind/relaymind/pkg/dialect/azure"
	"github.com/relaymind/relaymind/pkg/dialect/bedrock"
	"github.com/relaymind/relaymind/pkg/dialect/cohere"
	"github.com/relaymind/relaymind/pkg/dialect/generic"
	"github.com/relaymind/relaymind/pkg/dialect/mistral"
	"github.com/relaymind/relaymind/pkg/dialect/openai"
	"github.com/relaymind/relaymind/pkg/dialect/triton"
	"github.com/relaymind/relaymind/pkg/dialect/vertex"
)

// genericCompatibleProviders lists the long tail of OpenAI-compatible
// upstreams the gateway speaks to through the generic dialect - local
// runtimes, aggregators, and hosted inference services that copy OpenAI's
// wire format closely enough to need no transform beyond a custom base URL.
var genericCompatibleProviders = []string{
	"ollama", "vllm", "lmstudio", "fastchat", "together", "groq",
	"openrouter", "perplexity", "deepseek", "fireworks", "anyscale",
	"deepinfra", "novita", "databricks", "xai", "moonshot", "nebius",
	"replicate", "cerebras", "sambanova", "baseten", "lepton",
	"octoai", "voyage", "jina", "lambdalabs", "runpod", "modal",
	"siliconflow", "friendli",
}

// NewDefaultRegistry returns a registry populated with every dialect the
// gateway ships: the hand-written dialects for providers with a materially
// different wire shape, plus a generic OpenAI-compatible dialect registered
// under each of genericCompatibleProviders.
func NewDefaultRegistry(bedrockRegion, vertexProject, vertexLocation string) *dialect.Registry {
	registry := dialect.NewRegistry()

	registry.Register(openai.New())
	registry.Register(anthropic.New())
	registry.Register(bedrock.New(bedrockRegion))
	registry.Register(vertex.New(vertexProject, vertexLocation))
	registry.Register(azure.New())
	registry.Register(mistral.New())
	registry.Register(triton.New())
	registry.Register(cohere.New())

	for _, tag := range genericCompatibleProviders {
		registry.Register(generic.New(tag))
	}

	return registry
}
