package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(names ...string) []*Target {
	out := make([]*Target, len(names))
	for i, n := range names {
		out[i] = &Target{Name: n, ProviderTag: n, Weight: 1}
	}
	return out
}

func TestPlanner_Single_NeverFallsBack(t *testing.T) {
	cfg := Config{Mode: ModeSingle, Targets: targets("a", "b")}
	p, err := NewPlanner(cfg, nil, nil)
	require.NoError(t, err)

	first, err := p.First()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	_, ok, err := p.Next(500)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlanner_Fallback_AdvancesOnRetryableStatus(t *testing.T) {
	cfg := Config{Mode: ModeFallback, Targets: targets("a", "b", "c")}
	p, err := NewPlanner(cfg, nil, nil)
	require.NoError(t, err)

	first, _ := p.First()
	assert.Equal(t, "a", first.Name)

	next, ok, err := p.Next(503)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", next.Name)

	// non-retryable status stops the chain
	_, ok, err = p.Next(200)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlanner_Fallback_ExhaustsAfterLastTarget(t *testing.T) {
	cfg := Config{Mode: ModeFallback, Targets: targets("a", "b")}
	p, err := NewPlanner(cfg, nil, nil)
	require.NoError(t, err)

	p.First()
	p.Next(429)
	_, ok, err := p.Next(429)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlanner_Conditional_FirstMatchWins(t *testing.T) {
	ts := targets("default", "premium")
	cfg := Config{
		Mode:         ModeConditional,
		Targets:      ts,
		DefaultIndex: 0,
		Conditions: []Condition{
			{Query: Predicate{Field: "model", Op: PredicateContains, Value: "opus"}, TargetIndex: 1},
		},
	}

	p, err := NewPlanner(cfg, map[string]interface{}{"model": "claude-opus-4"}, nil)
	require.NoError(t, err)
	target, err := p.First()
	require.NoError(t, err)
	assert.Equal(t, "premium", target.Name)
}

func TestPlanner_Conditional_FallsBackToDefault(t *testing.T) {
	ts := targets("default", "premium")
	cfg := Config{
		Mode:         ModeConditional,
		Targets:      ts,
		DefaultIndex: 0,
		Conditions: []Condition{
			{Query: Predicate{Field: "model", Op: PredicateContains, Value: "opus"}, TargetIndex: 1},
		},
	}

	p, err := NewPlanner(cfg, map[string]interface{}{"model": "gpt-4"}, nil)
	require.NoError(t, err)
	target, err := p.First()
	require.NoError(t, err)
	assert.Equal(t, "default", target.Name)
}

func TestPlanner_LoadBalance_ExcludesZeroWeightTargets(t *testing.T) {
	ts := targets("a", "b")
	ts[1].Weight = 0
	cfg := Config{Mode: ModeLoadBalance, Targets: ts}

	p, err := NewPlanner(cfg, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		target, err := p.First()
		require.NoError(t, err)
		assert.Equal(t, "a", target.Name)
		p = mustPlanner(t, cfg)
	}
}

func TestPlanner_LoadBalance_DrawsAgainExcludingTried(t *testing.T) {
	ts := targets("a", "b")
	cfg := Config{Mode: ModeLoadBalance, Targets: ts}
	p, err := NewPlanner(cfg, nil, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	first, err := p.First()
	require.NoError(t, err)

	second, ok, err := p.Next(503)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, first.Name, second.Name)
}

func mustPlanner(t *testing.T, cfg Config) *Planner {
	t.Helper()
	p, err := NewPlanner(cfg, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return p
}

func TestStatusMatches_WildcardClass(t *testing.T) {
	assert.True(t, StatusMatches(503, DefaultOnStatusCodes()))
	assert.True(t, StatusMatches(429, DefaultOnStatusCodes()))
	assert.False(t, StatusMatches(404, DefaultOnStatusCodes()))
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := RetryPolicy{Attempts: 2, OnStatusCodes: []int{429, 5}}
	assert.True(t, p.ShouldRetry(0, 503))
	assert.True(t, p.ShouldRetry(1, 429))
	assert.False(t, p.ShouldRetry(2, 429)) // attempts exhausted
	assert.False(t, p.ShouldRetry(0, 404)) // not retryable
}
