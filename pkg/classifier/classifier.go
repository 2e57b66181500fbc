// Package classifier walks a provider's raw error payload and assigns it one
// of a fixed set of canonical HTTP statuses by matching indicator keywords
// found anywhere in the payload's string leaves. It generalizes the
// teacher's typed provider-error hierarchy (AuthError, RateLimitError,
// TimeoutError, ...) into a single classifier that works over arbitrary,
// not-yet-typed error bodies - upstreams rarely return a body shaped like
// any of this gateway's own error types.
package classifier

import "fmt"

// Family is the indicator keyword family a payload matched.
type Family string

const (
	FamilyAuth         Family = "authentication"
	FamilyRateLimit    Family = "rate_limit"
	FamilyNotFound     Family = "not_found"
	FamilyValidation   Family = "validation"
	FamilyPermission   Family = "permission"
	FamilyTimeout      Family = "timeout"
	FamilyUpstream     Family = "upstream"
	FamilyUnavailable  Family = "unavailable"
	FamilyClientOther  Family = "client_other"
	FamilyServerOther  Family = "server_other"
)

// genericMessage is the generic outward phrase for each server-error family,
// keeping the provider's actual message out of the client-facing response.
var genericMessage = map[Family]string{
	FamilyTimeout:     "the upstream provider timed out",
	FamilyUpstream:    "the upstream provider returned an invalid response",
	FamilyUnavailable: "the upstream provider is temporarily unavailable",
	FamilyServerOther: "the upstream provider returned an unexpected error",
}

// familyStatus maps each family to its canonical HTTP status.
var familyStatus = map[Family]int{
	FamilyAuth:        401,
	FamilyRateLimit:   429,
	FamilyNotFound:    404,
	FamilyValidation:  422,
	FamilyPermission:  403,
	FamilyTimeout:     408,
	FamilyUpstream:    502,
	FamilyUnavailable: 503,
}

// indicatorOrder is the keyword-match precedence: the first family whose
// keyword set matches anywhere in the payload wins, so a message mentioning
// both "rate limit" and "invalid" resolves to rate_limit, not validation,
// matching the order spec.md lists families in.
var indicatorOrder = []struct {
	family   Family
	keywords []string
}{
	{FamilyAuth, []string{"authentication", "unauthorized", "invalid api key", "invalid_api_key", "api key"}},
	{FamilyRateLimit, []string{"rate limit", "rate_limit", "quota", "too many requests"}},
	{FamilyNotFound, []string{"not found", "not_found", "does not exist", "no such"}},
	{FamilyValidation, []string{"validation", "invalid request", "missing required", "missing_required", "malformed"}},
	{FamilyPermission, []string{"permission", "forbidden", "access denied", "not allowed"}},
	{FamilyTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{FamilyUpstream, []string{"upstream", "gateway", "bad gateway"}},
	{FamilyUnavailable, []string{"unavailable", "overloaded", "overload", "capacity"}},
}

// Classification is the result of classifying one error payload.
type Classification struct {
	Status          int
	Family          Family
	IsServerError   bool
	OutwardMessage  string
	OriginalMessage string
}

// Result is the client-visible error_details envelope Classify produces.
type Result struct {
	Status         int                    `json:"status"`
	Message        string                 `json:"message"`
	ErrorDetails   map[string]interface{} `json:"error_details"`
}

// Classify walks payload's string leaves (bounded depth, cycle-safe) looking
// for the first matching indicator family, then renders the client-visible
// message per spec.md's server-error/client-error split: a server error
// (5xx) gets a generic outward phrase with the original preserved under
// error_details.original_*; a client error (4xx) passes the provider
// message through, prefixed once with "<provider> error: ".
//
// statusHint is the upstream's own HTTP status, if known (0 if not); it is
// only consulted when no keyword family matches, to decide between the
// "other 4xx -> 400" and "other 5xx -> 500" defaults. An unknown hint
// defaults to a server error, since an unclassified provider failure is
// safer to treat as retryable/opaque than to pass straight through.
func Classify(provider string, statusHint int, payload interface{}) Result {
	family, originalMessage := matchFamily(payload)
	status := statusFor(family, statusHint)
	isServer := status >= 500

	var outward string
	if isServer {
		outward = genericMessage[family]
		if outward == "" {
			outward = genericMessage[FamilyServerOther]
		}
	} else {
		outward = prefixOnce(provider, originalMessage)
	}

	details := map[string]interface{}{
		"family": string(family),
	}
	if isServer {
		details["original_message"] = originalMessage
		details["original_payload"] = payload
	}

	return Result{Status: status, Message: outward, ErrorDetails: details}
}

// prefixOnce adds the "<provider> error: " prefix exactly once, even if the
// message already carries it (e.g. a classification re-run on this
// classifier's own prior output, which the idempotence property requires).
func prefixOnce(provider, message string) string {
	prefix := fmt.Sprintf("%s error: ", provider)
	if len(message) >= len(prefix) && message[:len(prefix)] == prefix {
		return message
	}
	return prefix + message
}

func statusFor(family Family, statusHint int) int {
	if s, ok := familyStatus[family]; ok {
		return s
	}
	if statusHint >= 400 && statusHint < 500 {
		return 400
	}
	return 500
}
