package server

import (
	"fmt"

	"github.com/relaymind/relaymind/pkg/config"
	"github.com/relaymind/relaymind/pkg/limits"
	"github.com/relaymind/relaymind/pkg/limits/budget"
	"github.com/relaymind/relaymind/pkg/limits/enforcement"
	"github.com/relaymind/relaymind/pkg/limits/ratelimit"
	limitsstorage "github.com/relaymind/relaymind/pkg/limits/storage"
)

// buildLimitsManager converts config.LimitsConfig into a *limits.Manager.
// pkg/proxy/middleware.NewLimitsManagerFromConfig does the same conversion
// but takes an unexported mirror type private to that package, so this
// builds the limits.Config directly from the real config type instead of
// duplicating that mirror.
func buildLimitsManager(cfg config.LimitsConfig) (*limits.Manager, error) {
	rateLimits := make(map[string]ratelimit.Config, len(cfg.RateLimits.ByAPIKey))
	for id, rl := range cfg.RateLimits.ByAPIKey {
		rateLimits[id] = ratelimit.Config{
			RequestsPerSecond: rl.RequestsPerSecond,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			TokensPerMinute:   rl.TokensPerMinute,
			TokensPerHour:     rl.TokensPerHour,
			MaxConcurrent:     rl.MaxConcurrent,
		}
	}

	budgets := make(map[string]budget.Config, len(cfg.Budgets.ByAPIKey))
	for id, bl := range cfg.Budgets.ByAPIKey {
		budgets[id] = budget.Config{
			Hourly:         bl.Hourly,
			Daily:          bl.Daily,
			Monthly:        bl.Monthly,
			AlertThreshold: cfg.Budgets.AlertThreshold,
		}
	}

	var backend limitsstorage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		b, err := limitsstorage.NewSQLiteBackend(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("server: create sqlite limits backend: %w", err)
		}
		backend = b
	default:
		backend = limitsstorage.NewMemoryBackendWithConfig(limitsstorage.MemoryBackendConfig{
			MaxEntries:      cfg.Storage.Memory.MaxEntries,
			CleanupInterval: cfg.Storage.Memory.CleanupInterval,
		})
	}

	return limits.NewManager(limits.Config{
		RateLimits: rateLimits,
		Budgets:    budgets,
		Enforcement: enforcement.Config{
			DefaultAction:   enforcement.Action(cfg.Enforcement.Action),
			QueueDepth:      cfg.Enforcement.QueueDepth,
			QueueTimeout:    cfg.Enforcement.QueueTimeout,
			ModelDowngrades: cfg.Enforcement.ModelDowngrades,
		},
		Storage: backend,
	}), nil
}
