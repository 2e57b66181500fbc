// Package strategy resolves a configured list of upstream targets into an
// attempt sequence: single target, ordered fallback, weighted load balance,
// or a declarative per-request conditional pick. Per-target retry with
// backoff lives alongside it in retry.go since a retry decision and a
// strategy-advance decision share the same status-code-gating shape.
package strategy

import (
	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/dialect"
)

// Mode selects how targets are sequenced into attempts.
type Mode string

const (
	ModeSingle      Mode = "single"
	ModeFallback    Mode = "fallback"
	ModeLoadBalance Mode = "loadbalance"
	ModeConditional Mode = "conditional"
)

// Target is one upstream binding a strategy can dispatch an attempt to:
// the dialect-level connection info, a load-balance weight, its own retry
// policy, and an optional per-target cache override.
type Target struct {
	Name        string
	ProviderTag string
	Dialect     dialect.Target
	Weight      float64
	Retry       RetryPolicy
	CacheConfig *cache.Config // nil means use the skill-level cache config
}

// Condition is one entry of a conditional strategy's ordered rule list: if
// Query matches the canonical request body, TargetIndex is selected.
type Condition struct {
	Query       Predicate
	TargetIndex int
}

// Config is the resolved strategy for one request.
type Config struct {
	Mode          Mode
	Targets       []*Target
	Conditions    []Condition // only consulted when Mode == ModeConditional
	DefaultIndex  int         // target used when no condition matches
	OnStatusCodes []int       // strategy-level advance/draw-again gate
}

// DefaultOnStatusCodes is 408, 429, and any 5xx - the set spec.md's fallback
// and loadbalance modes advance on absent an explicit override. A code less
// than 10 is treated as a status-class wildcard: 4 matches any 4xx, 5 matches
// any 5xx.
func DefaultOnStatusCodes() []int {
	return []int{408, 429, 5}
}

// StatusMatches reports whether status is covered by codes, honoring the
// status-class wildcard convention described on DefaultOnStatusCodes.
func StatusMatches(status int, codes []int) bool {
	for _, c := range codes {
		if c < 10 {
			if status/100 == c {
				return true
			}
			continue
		}
		if c == status {
			return true
		}
	}
	return false
}

func effectiveCodes(codes []int) []int {
	if len(codes) == 0 {
		return DefaultOnStatusCodes()
	}
	return codes
}

// RetryPolicy is one target's own retry behavior, counted separately from
// strategy-level attempts: exponential backoff with jitter, optionally
// honoring an upstream Retry-After header.
type RetryPolicy struct {
	Attempts            int
	OnStatusCodes       []int
	UseRetryAfterHeader bool
}

// ShouldRetry reports whether another attempt against the same target is
// warranted: attempt is the number of attempts already made (0-indexed).
func (p RetryPolicy) ShouldRetry(attempt int, status int) bool {
	if attempt >= p.Attempts {
		return false
	}
	return StatusMatches(status, effectiveCodes(p.OnStatusCodes))
}
