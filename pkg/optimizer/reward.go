package optimizer

// ApplyReward folds one evaluation's reward into an arm's running stats:
// n increments, total_reward accumulates, mean and n2 (sum of squared
// rewards, for variance) follow. Pure so callers can apply it under
// whatever locking their Store implementation needs.
func ApplyReward(stats ArmStats, reward float64) ArmStats {
	stats.N++
	stats.TotalReward += reward
	stats.Mean = stats.TotalReward / float64(stats.N)
	stats.N2 += reward * reward
	return stats
}
