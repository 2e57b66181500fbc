package evaluator

import "context"

// LatencyMethod scores time-to-first-token (streaming) or total duration
// (non-streaming) against a skill's target/max latency with a linear
// falloff: at or under target scores 1, at or over max scores 0, linear
// between. Missing timing information yields a neutral 0.5 with an error
// note rather than failing the evaluation outright.
type LatencyMethod struct{}

// NewLatencyMethod returns the deterministic latency evaluator.
func NewLatencyMethod() *LatencyMethod {
	return &LatencyMethod{}
}

func (m *LatencyMethod) Name() string { return "latency" }

func (m *LatencyMethod) EvaluateLog(ctx context.Context, log Log, params Params, storage Storage) (Result, error) {
	if params.TargetLatencyMS <= 0 || params.MaxLatencyMS <= params.TargetLatencyMS {
		return Result{
			Score: 0.5,
			Error: "latency: target_latency_ms/max_latency_ms not configured, neutral score",
		}, nil
	}

	var observedMS int64
	if log.FirstTokenMS != nil {
		observedMS = *log.FirstTokenMS - log.StartTimeMS
	} else if log.EndTimeMS > 0 {
		observedMS = log.DurationMS()
	} else {
		return Result{
			Score: 0.5,
			Error: "latency: no timing available on log, neutral score",
		}, nil
	}

	return Result{Score: latencyScore(observedMS, params.TargetLatencyMS, params.MaxLatencyMS)}, nil
}

func latencyScore(observedMS, targetMS, maxMS int64) float64 {
	if observedMS <= targetMS {
		return 1.0
	}
	if observedMS >= maxMS {
		return 0.0
	}
	span := float64(maxMS - targetMS)
	return clampScore(1.0 - float64(observedMS-targetMS)/span)
}
