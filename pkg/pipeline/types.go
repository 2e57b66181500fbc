// Package pipeline orchestrates one inbound request end to end: agent/skill
// resolution, embedding, optimizer selection, input hooks, the
// strategy/retry/cache dispatch loop, output hooks, observability logging,
// and the stream/non-stream multiplexing between client and upstream.
// Grounded on the teacher's pkg/proxy/handlers/chat.go (request conversion)
// and pkg/server/server.go + pkg/proxy/middleware/* (route wiring and the
// ambient middleware chain, reused unchanged one layer up in pkg/server).
package pipeline

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/wire"
)

// ConfiguredTarget is one caller-supplied upstream binding, before the
// optimizer's per-request overrides (if any) are applied.
type ConfiguredTarget struct {
	Name        string
	ProviderTag string
	Model       string
	BaseURL     string
	APIKey      string
	ExtraFields map[string]string
	Weight      float64
	Retry       strategy.RetryPolicy
	CacheConfig *cache.Config
}

// RequestConfig is the per-request control envelope: spec.md's
// Config-preprocessed, already parsed from inbound headers and the
// resolved skill/route defaults by the caller (pkg/server).
type RequestConfig struct {
	Targets       []ConfiguredTarget
	Mode          strategy.Mode
	Conditions    []strategy.Condition
	DefaultIndex  int
	OnStatusCodes []int

	Hooks []hooks.Hook

	TraceID string
	SpanID  string

	ForceRefresh     bool
	StrictCompliance bool

	SystemPromptVariables map[string]string
	SystemPromptAllowList []string

	EvaluationMethods []string
	EvaluationParams  evaluator.Params

	RequestTimeout time.Duration
}

// Validate checks the structural constraints step 1 of the request
// lifecycle owns: a non-empty target list and a recognized mode.
func (c RequestConfig) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("pipeline: request config has no targets")
	}
	switch c.Mode {
	case strategy.ModeSingle, strategy.ModeFallback, strategy.ModeLoadBalance, strategy.ModeConditional:
	default:
		return fmt.Errorf("pipeline: unknown strategy mode %q", c.Mode)
	}
	if c.Mode == strategy.ModeConditional && (c.DefaultIndex < 0 || c.DefaultIndex >= len(c.Targets)) {
		return fmt.Errorf("pipeline: conditional default_index %d out of range", c.DefaultIndex)
	}
	return nil
}

// Inbound is one request's complete input: the canonical body, the
// agent/skill it targets by name, and the resolved per-request config.
type Inbound struct {
	Request   *wire.Request
	AgentName string
	SkillName string
	Config    RequestConfig

	// WantStream is what the client actually asked for on the wire
	// (distinct from Request.Function.IsStreaming(), which names the
	// canonical function but is set the same way by the caller).
	WantStream bool

	// RNG, if non-nil, seeds the strategy Planner and optimizer arm draw
	// deterministically; nil uses a fresh process-level source.
	RNG *rand.Rand
}

// ServeResult is what Pipeline.Serve produces: the canonical response,
// the chunks for the client, and the observability record built for this
// request. With WantStream set, Chunks holds the raw upstream chunks when
// the dispatch streamed and chunks synthesized from the response otherwise;
// without it, Chunks is nil except on a cache hit whose entry stored chunks.
type ServeResult struct {
	Response *wire.Response
	Chunks   []*wire.Chunk
	Record   *observability.Record
}

// attemptOutcome is the per-attempt result the strategy loop inspects to
// decide whether to retry the same target, advance to the next one, or
// stop.
type attemptOutcome struct {
	status      int
	response    *wire.Response
	chunks      []*wire.Chunk
	cacheStatus cache.Status
	denied      bool
	denyReason  string
	hookLog     []hooks.LogEntry
	err         error
}

// dialectTargetOf builds the dialect.Target a ConfiguredTarget resolves to,
// before any optimizer override is layered on.
func (t ConfiguredTarget) dialectTargetOf() dialect.Target {
	return dialect.Target{
		Provider:    t.ProviderTag,
		BaseURL:     t.BaseURL,
		APIKey:      t.APIKey,
		Model:       t.Model,
		ExtraFields: t.ExtraFields,
	}
}
