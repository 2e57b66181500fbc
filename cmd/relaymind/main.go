// Relaymind is an AI-provider gateway and adaptive optimization plane.
//
// It acts as an HTTP gateway for LLM API requests, providing:
//   - A dialect layer normalizing requests/responses across providers
//   - Response caching (exact and semantic)
//   - Adaptive optimization of per-skill system prompts and parameters
//   - LLM-judge and heuristic evaluation of live traffic
//   - Rate limiting and budget enforcement
//
// Usage:
//
//	# Start server with default configuration
//	relaymind run
//
//	# Start with custom configuration file
//	relaymind run --config /path/to/config.yaml
//
//	# Validate config without starting the server
//	relaymind run --dry-run
//
//	# Show version information
//	relaymind version
//
// For complete documentation, see: https://github.com/relaymind/relaymind
package main

func main() {
	Execute()
}
