// Package wire defines the canonical, provider-agnostic request/response/
// stream-chunk shapes that flow through the gateway. Every inbound request is
// parsed into one of these shapes before the dialect layer (pkg/dialect)
// rewrites it into an upstream-specific body, and every upstream response is
// normalized back into the same shapes before it reaches the caller.
//
// The model mirrors the OpenAI wire format closely (chat messages, completion
// prompts, Responses-API input items) because that is the lingua franca most
// callers already speak, but it is intentionally provider-neutral: nothing in
// this package knows about any specific upstream.
package wire
