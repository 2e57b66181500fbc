package evaluator

// AverageReward combines multiple evaluation results attached to the same
// skill into the single scalar reward the C7 update consumes, with uniform
// weights across methods. Errored results (Result.Error set, score left at
// the neutral 0.5) still count toward the average per spec: a method that
// can't judge doesn't silently drop out of the reward.
func AverageReward(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}
