// Package cache implements the response cache: fingerprint hashing, the
// disabled/simple/semantic modes, single-flight request coalescing, TTL
// expiry, and streaming replay. The entry bookkeeping (TTL, LRU-adjacent
// cleanup goroutine) follows the teacher's StickyCache; the coalescing layer
// on top of it is new, grounded on golang.org/x/sync/singleflight.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/relaymind/relaymind/pkg/wire"
)

// Fingerprint computes the stable cache key for a request: a SHA-256 hash
// over (provider, model, function name, canonical body with
// insertion-ordered keys rewritten to sorted keys for stability, strict
// compliance flag).
func Fingerprint(provider, model string, function wire.FunctionName, req *wire.Request, strict bool) string {
	h := sha256.New()

	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(function))
	h.Write([]byte{0})
	if strict {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte{0})

	body := stableBody(req)
	enc, _ := json.Marshal(body)
	h.Write(enc)

	return hex.EncodeToString(h.Sum(nil))
}

// stableBody builds a map of the fields that determine whether two requests
// are cache-equivalent, with any nested map's keys sorted before encoding so
// that insertion order never perturbs the hash.
func stableBody(req *wire.Request) map[string]interface{} {
	body := map[string]interface{}{
		"messages":          req.Messages,
		"prompt":            req.Prompt,
		"input":             req.Input,
		"temperature":       req.Temperature,
		"top_p":             req.TopP,
		"max_tokens":        req.MaxTokens,
		"frequency_penalty": req.FrequencyPenalty,
		"presence_penalty":  req.PresencePenalty,
		"stop":              req.Stop,
		"tools":              req.Tools,
		"tool_choice":       req.ToolChoice,
		"seed":              req.Seed,
	}
	if len(req.AdditionalParams) > 0 {
		keys := make([]string, 0, len(req.AdditionalParams))
		for k := range req.AdditionalParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			ordered[k] = req.AdditionalParams[k]
		}
		body["additional_params"] = ordered
	}
	return body
}
