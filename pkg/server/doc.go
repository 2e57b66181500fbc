// Package server provides the gateway's HTTP surface: inference routes,
// the read-only reactive-agents control plane, and process lifecycle.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Registers one handler per inference route plus the control plane
//   - Chains middleware for cross-cutting concerns
//   - Configures TLS termination
//   - Manages graceful shutdown
//   - Handles OS signals (SIGTERM, SIGINT)
//
// # Basic Usage
//
// Creating and starting a server around a fully-wired Pipeline:
//
//	import (
//	    "context"
//	    "github.com/relaymind/relaymind/pkg/config"
//	    "github.com/relaymind/relaymind/pkg/server"
//	)
//
//	cfg := config.GetConfig()
//	p := buildPipeline(cfg) // dialects, cache, optimizer, evaluators, storage
//
//	srv := server.NewServer(cfg, p)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles graceful shutdown automatically when receiving SIGTERM or
// SIGINT, or when its context is cancelled:
//
//	if err := srv.Shutdown(context.Background()); err != nil {
//	    log.Error("shutdown error", "error", err)
//	}
//
// The shutdown process:
//  1. Stops accepting new connections
//  2. Waits for active connections to complete (up to shutdown timeout)
//  3. Forces connection closure if timeout exceeded
//  4. Flushes observability
//
// # Routes
//
// The server exposes:
//
//   - POST /v1/{chat/completions,completions,responses,embeddings,
//     images/generations,moderations,audio/speech,audio/transcriptions,
//     audio/translations} - inference routes, dispatched through the Pipeline
//   - GET /v1/reactive-agents/* - read-only agents/skills/models/providers/
//     evaluations/datasets/logs/events listing
//   - GET /health, GET /ready - liveness and readiness probes
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//  1. Limits: rate limit / budget enforcement, when configured
//  2. Timeout: enforces per-request timeout
//  3. CORS: adds Cross-Origin Resource Sharing headers
//  4. RequestID: generates a unique request ID for tracing
//  5. Logging: logs request/response details
//  6. Recovery: recovers from panics and returns a 500
//
// # TLS Support
//
// The server supports TLS 1.3 with configurable certificates:
//
//	security:
//	  tls:
//	    enabled: true
//	    cert_file: "/path/to/cert.pem"
//	    key_file: "/path/to/key.pem"
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
