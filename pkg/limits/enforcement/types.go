package enforcement

import "time"

// Action defines what to do when a limit is exceeded.
type Action string

const (
	// ActionAllow permits the request to proceed.
	ActionAllow Action = "allow"

	// ActionBlock rejects the request with 429 Too Many Requests.
	ActionBlock Action = "block"

	// ActionQueue reports the request as not allowed with Action=queue and
	// the limit's RetryAfter; the request is not held.
	ActionQueue Action = "queue"

	// ActionDowngrade routes to a cheaper model.
	ActionDowngrade Action = "downgrade"

	// ActionAlert triggers an alert but allows the request.
	ActionAlert Action = "alert"
)

// Config contains configuration for the enforcer.
type Config struct {
	// DefaultAction is the action to take when no specific action is configured.
	DefaultAction Action

	// QueueDepth is the configured queue size for action=queue. NewEnforcer
	// defaults it to 100; Enforce does not read it.
	QueueDepth int

	// QueueTimeout is the configured queue wait for action=queue. NewEnforcer
	// defaults it to 30s; Enforce does not read it.
	QueueTimeout time.Duration

	// ModelDowngrades maps expensive models to cheaper alternatives.
	// Example: "gpt-4" -> "gpt-3.5-turbo"
	ModelDowngrades map[string]string
}

// Result contains the result of an enforcement action.
type Result struct {
	// Allowed indicates if the request should proceed.
	Allowed bool

	// Action is the enforcement action that was taken.
	Action Action

	// Reason explains why the request was blocked (if Allowed=false).
	Reason string

	// DowngradedModel is the cheaper model to use (if action=downgrade).
	DowngradedModel string

	// RetryAfter suggests how long to wait before retrying (if action=block).
	RetryAfter time.Duration

	// AlertMessage contains the alert message (if action=alert).
	AlertMessage string
}
