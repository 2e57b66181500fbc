package evaluator

import "context"

// contextKey mirrors the teacher's middleware context-key idiom: a private
// string type so evaluator's context values never collide with another
// package's.
type contextKey string

const depthKey contextKey = "evaluator_judge_depth"

// MaxJudgeDepth bounds judge-of-judge reentrancy: a judge call evaluating a
// judge call evaluating a judge call, without limit, would never terminate.
const MaxJudgeDepth = 2

// WithJudgeDepth records one more level of judge reentrancy on ctx.
func WithJudgeDepth(ctx context.Context) context.Context {
	return context.WithValue(ctx, depthKey, judgeDepth(ctx)+1)
}

// judgeDepth reads the current reentrancy depth, 0 if ctx carries none.
func judgeDepth(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey).(int); ok {
		return d
	}
	return 0
}

// checkJudgeDepth returns an error once depth exceeds MaxJudgeDepth, guarding
// the gateway's internal-skill allow-list call path against infinite
// judge-of-judge loops.
func checkJudgeDepth(ctx context.Context) error {
	if judgeDepth(ctx) > MaxJudgeDepth {
		return errMaxJudgeDepth
	}
	return nil
}
