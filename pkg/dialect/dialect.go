// Package dialect holds the per-provider translation contract: how a
// canonical request becomes an upstream HTTP call, and how an upstream
// response or stream chunk becomes a canonical one. Every upstream the
// gateway speaks to - OpenAI, Anthropic, Bedrock, Vertex, Azure, Mistral,
// Triton, Cohere, and the long tail of OpenAI-compatible providers caught by
// the generic dialect - implements the same Dialect contract so the rest of
// the pipeline never branches on provider identity.
package dialect

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/relaymind/relaymind/pkg/wire"
)

// Target is the resolved, credential-bearing destination a Dialect sends a
// request to: one upstream endpoint configuration drawn from a Skill's
// Target Configuration list.
type Target struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	ExtraFields map[string]string
}

// FieldPolicy is one parameter-table entry: how a single canonical field
// maps onto an upstream field.
type FieldPolicy struct {
	Param     string
	Default   interface{}
	Required  bool
	Min       *float64
	Max       *float64
	Transform func(value interface{}, req *wire.Request) (interface{}, error)
}

// ParameterTable maps canonical field names to their upstream policy for one
// function.
type ParameterTable map[string]FieldPolicy

// StreamState carries transform-local bookkeeping (the fallback id, whether
// a role has already been emitted, tool-call names keyed by content-block
// index) across successive calls to StreamChunkTransform for a single stream.
type StreamState struct {
	FallbackID    string
	RoleEmitted   bool
	ToolCallNames map[int]string
}

// NewStreamState returns a StreamState seeded with the id to use when the
// upstream chunk carries none of its own.
func NewStreamState(fallbackID string) *StreamState {
	return &StreamState{FallbackID: fallbackID, ToolCallNames: make(map[int]string)}
}

// Dialect is the full per-provider translation and transport contract
// described for the dialect registry: URL/header/endpoint construction,
// parameter tables, and the three normalization functions.
type Dialect interface {
	// Name is the provider tag this dialect is registered under.
	Name() string

	// BaseURL validates and returns the target's base URL, rejecting
	// non-http(s) schemes, empty hosts, out-of-range ports, and path
	// traversal in the target's configured path.
	BaseURL(target Target) (string, error)

	// Headers builds the authorization and provider-specific headers for a
	// call. It must never leak fields from Target.ExtraFields that this
	// dialect does not explicitly recognize.
	Headers(target Target, function wire.FunctionName) (map[string]string, error)

	// Endpoint returns the upstream path for a function, e.g.
	// "/v1/chat/completions" or "/v2/models/{model}/infer" for KServe-style
	// dialects.
	Endpoint(req *wire.Request, target Target) (string, error)

	// ParameterTable returns the field policy table for a function, or nil
	// if the dialect has no mapping for it (the function is unsupported
	// upstream).
	ParameterTable(function wire.FunctionName) ParameterTable

	// ResponseTransform normalizes a complete upstream HTTP body into a
	// canonical Response, or returns a CanonicalError describing why it
	// could not.
	ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *CanonicalError)

	// StreamChunkTransform normalizes one raw upstream SSE payload into zero
	// or more canonical Chunks. state is mutated across successive calls
	// for the same stream.
	StreamChunkTransform(raw []byte, state *StreamState, strict bool, req *wire.Request) ([]*wire.Chunk, error)

	// ErrorTransform extracts message/type/param/code from a raw upstream
	// error body.
	ErrorTransform(body []byte, status int) *CanonicalError

	// CustomFieldsSchema describes provider-specific credential/extra
	// fields expected on a Target, for validation at config-load time. Nil
	// if the dialect needs none beyond APIKey.
	CustomFieldsSchema() map[string]FieldSchema

	// IsAPIKeyRequired reports whether Target.APIKey must be non-empty for
	// this dialect (false for unauthenticated local deployments such as a
	// bare Triton server).
	IsAPIKeyRequired() bool
}

// FieldSchema describes one entry of a dialect's CustomFieldsSchema.
type FieldSchema struct {
	Required    bool
	Description string
}

// CanonicalError is the normalized shape every dialect's error paths
// produce; pkg/classifier turns this into the outward-facing status code and
// message.
type CanonicalError struct {
	Message  string
	Type     string
	Param    string
	Code     string
	Status   int
	Provider string
	Raw      interface{}
}

func (e *CanonicalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ValidateBaseURL rejects non-http(s) schemes, empty hosts, out-of-range
// ports, and ".." path traversal segments. Shared by every dialect's
// BaseURL implementation.
func ValidateBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("dialect: empty base url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("dialect: invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("dialect: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("dialect: empty host in base url %q", raw)
	}
	if p := u.Port(); p != "" {
		var port int
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil || port < 1 || port > 65535 {
			return "", fmt.Errorf("dialect: port out of range in base url %q", raw)
		}
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == ".." {
			return "", fmt.Errorf("dialect: path traversal in base url %q", raw)
		}
	}
	return strings.TrimRight(raw, "/"), nil
}

// Registry resolves provider tags to their Dialect. Registration is static:
// every dialect is added once at startup via Register; Resolve on an
// unknown tag is the InvalidProvider condition the pipeline surfaces.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{dialects: make(map[string]Dialect)}
}

// Register adds a Dialect under its own Name(). Registering the same name
// twice is a programming error and panics, matching startup-time static
// registration.
func (r *Registry) Register(d Dialect) {
	name := d.Name()
	if _, exists := r.dialects[name]; exists {
		panic(fmt.Sprintf("dialect: provider %q already registered", name))
	}
	r.dialects[name] = d
}

// ErrInvalidProvider is returned by Resolve when the tag has no registered
// Dialect.
type ErrInvalidProvider struct {
	Provider string
}

func (e *ErrInvalidProvider) Error() string {
	return fmt.Sprintf("dialect: unknown provider %q", e.Provider)
}

// Resolve looks up the Dialect registered for a provider tag.
func (r *Registry) Resolve(provider string) (Dialect, error) {
	d, ok := r.dialects[provider]
	if !ok {
		return nil, &ErrInvalidProvider{Provider: provider}
	}
	return d, nil
}

// Providers lists every registered provider tag, sorted for deterministic
// output in diagnostics and the control-plane surface.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
