package strategy

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// BackoffDelay computes how long to wait before the given retry attempt
// (0-indexed, i.e. attempt 0 is the first retry after the initial try).
// Exponential backoff follows the same 2^attempt doubling the teacher's
// HTTP provider uses, scaled to a 200ms base and capped at 30s, with up to
// 20% jitter added to avoid synchronized retries across concurrent
// requests. If useRetryAfter is true and retryAfter is positive, the
// upstream's Retry-After header wins outright.
func BackoffDelay(attempt int, retryAfter time.Duration, useRetryAfter bool) time.Duration {
	if useRetryAfter && retryAfter > 0 {
		return retryAfter
	}

	const base = 200 * time.Millisecond
	const maxDelay = 30 * time.Second

	delay := time.Duration(math.Pow(2, float64(attempt))) * base
	if delay > maxDelay {
		delay = maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay/5) + 1))
	return delay + jitter
}

// ParseRetryAfter parses a Retry-After header value, which may be either a
// delay in seconds or an HTTP-date. Returns 0 if the header is absent or
// unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}
