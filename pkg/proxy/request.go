// Package proxy holds the small set of HTTP-layer constants and helpers the
// gateway's middleware chain (pkg/proxy/middleware) still depends on; the
// OpenAI-shaped request/response transcoding this package used to own now
// lives in pkg/server, driven by wire.Request directly.
package proxy

import (
	"net/http"
	"strings"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader is the HTTP header for API key authentication.
	AuthorizationHeader = "Authorization"

	// UserIDHeader is the HTTP header for user ID tracking.
	UserIDHeader = "X-User-ID"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ExtractAPIKey extracts the API key from the Authorization header. It
// expects the format "Bearer <api-key>". Returns "" if the header is
// missing or malformed.
func ExtractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ExtractUserID extracts the user ID from the X-User-ID header.
func ExtractUserID(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}

// ExtractRequestID extracts the caller-supplied request ID from the
// X-Request-ID header, if the caller provided its own for correlation.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
