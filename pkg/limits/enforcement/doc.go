// Package enforcement provides enforcement actions for limit violations.
//
// # Overview
//
// The enforcement package defines what happens when limits are exceeded:
//
//   - Block: Reject the request with 429 Too Many Requests
//   - Queue: Report the request as not allowed with Action=queue; the
//     request is not held, and no queue is kept
//   - Downgrade: Route to a cheaper model
//   - Alert: Trigger an alert but allow the request
//
// # Usage
//
//	enforcer := enforcement.NewEnforcer(enforcement.Config{
//	    DefaultAction: enforcement.ActionBlock,
//	    QueueDepth:    100,
//	    QueueTimeout:  30 * time.Second,
//	})
//
//	// Execute enforcement action
//	result, err := enforcer.Enforce(ctx, action, reason, model, retryAfter)
//
// # Thread Safety
//
// The Enforcer is thread-safe and can be used concurrently from multiple goroutines.
package enforcement
