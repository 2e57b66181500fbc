package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/cli"
	"github.com/relaymind/relaymind/pkg/config"
	"github.com/relaymind/relaymind/pkg/dialect/builtin"
	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
	"github.com/relaymind/relaymind/pkg/pipeline"
	"github.com/relaymind/relaymind/pkg/server"
	"github.com/relaymind/relaymind/pkg/storage"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/transform"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Relaymind gateway server",
	Long: `Start the Relaymind gateway server with the specified configuration.

The server listens on the configured address and routes inference requests
through the hook pipeline, the adaptive optimizer, the response cache, and
the configured upstream providers.

Examples:
  # Start with default config
  relaymind run

  # Start with custom config
  relaymind run --config /etc/relaymind/config.yaml

  # Override listen address
  relaymind run --listen 0.0.0.0:8080

  # Validate config without starting server
  relaymind run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	var logLevel slog.Level
	switch cfg.Telemetry.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer p.Observability.Close()

	fmt.Printf("✓ Dialects registered (%d providers)\n", len(p.Dialects.Providers()))
	fmt.Printf("✓ Evaluator methods registered (%d methods)\n", len(p.Evaluators.Names()))

	slog.Info("creating HTTP server")
	srv := server.NewServer(cfg, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server",
			"address", cfg.Proxy.ListenAddress,
			"tls_enabled", cfg.Security.TLS.Enabled,
		)
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if err := waitForServerReady(cfg.Proxy.ListenAddress, 5*time.Second); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Ready endpoint: http://%s/ready\n", cfg.Proxy.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Proxy.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// buildPipeline assembles a fully-wired Pipeline from config: the dialect
// registry (every built-in dialect plus the generic OpenAI-compatible long
// tail), the storage connector, the observability builder, the response
// cache, the adaptive optimizer (when enabled), the evaluator registry
// (bound to a reentrant gateway judge), and the judge's own RequestConfig.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	bedrockRegion := os.Getenv("AWS_REGION")
	vertexProject := os.Getenv("RELAYMIND_VERTEX_PROJECT")
	vertexLocation := os.Getenv("RELAYMIND_VERTEX_LOCATION")
	registry := builtin.NewDefaultRegistry(bedrockRegion, vertexProject, vertexLocation)

	conn, err := buildStorageConnector(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("build storage connector: %w", err)
	}

	obs := observability.NewBuilder(storage.ObservabilityStore{Connector: conn}, observability.DefaultConfig(), logger)

	respCache := cache.New(cache.Config{
		Mode:              cacheMode(cfg.Cache),
		TTL:               cfg.Cache.TTL,
		MaxEntries:        cfg.Cache.MaxEntries,
		SemanticThreshold: cfg.Cache.SemanticThreshold,
	})

	var opt *optimizer.Optimizer
	if cfg.Optimizer.Enabled {
		// No concrete optimizer.Generator ships with the gateway (arm
		// proposal needs an admin-defined configuration space the storage
		// schema doesn't model yet); a skill marked Optimize=true without
		// one configured falls back to its first arm draw failing closed,
		// same as an unconfigured embedding.Provider leaves semantic
		// routing degraded rather than panicking.
		opt = optimizer.New(optimizer.NewMemoryStore(), nil)
	}

	judge := pipeline.NewGatewayJudge()
	evaluators := evaluator.NewDefaultRegistry(judge)

	p := pipeline.New(registry, transform.NewEngine(), respCache, opt, evaluators, obs, nil, conn, http.DefaultClient, logger)
	judge.Bind(p)
	p.JudgeConfig = buildJudgeConfig(cfg)

	return p, nil
}

func cacheMode(cfg config.CacheConfig) cache.Mode {
	if !cfg.Enabled {
		return cache.ModeDisabled
	}
	if cfg.SemanticThreshold > 0 {
		return cache.ModeSemantic
	}
	return cache.ModeSimple
}

func buildStorageConnector(cfg config.StorageConfig) (storage.Connector, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.NewSQLiteConnector(cfg.SQLite)
	case "memory", "":
		return storage.NewMemoryConnector(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// buildJudgeConfig resolves the single-target RequestConfig the gateway's
// own reentrant judge calls use. JudgeModel is "<provider>/<model>"; the
// provider's configured API key and base URL are reused as-is.
func buildJudgeConfig(cfg *config.Config) pipeline.RequestConfig {
	provider, model, _ := strings.Cut(cfg.Evaluator.JudgeModel, "/")
	if provider == "" {
		return pipeline.RequestConfig{Mode: strategy.ModeSingle}
	}

	providerCfg := cfg.Providers[provider]
	baseURL := providerCfg.BaseURL
	if baseURL == "" {
		if dc, ok := cfg.Dialects[provider]; ok {
			baseURL = dc.BaseURL
		}
	}

	return pipeline.RequestConfig{
		Mode: strategy.ModeSingle,
		Targets: []pipeline.ConfiguredTarget{{
			Name:        "judge",
			ProviderTag: provider,
			Model:       model,
			BaseURL:     baseURL,
			APIKey:      providerCfg.APIKey,
		}},
		EvaluationMethods: nil,
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Relaymind v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	providerCount := len(cfg.Providers)
	if providerCount > 0 {
		slog.Debug("providers configured", "count", providerCount)
	}
}

func waitForServerReady(address string, timeout time.Duration) error {
	// Simple delay for MVP - in production this should poll the health endpoint
	time.Sleep(100 * time.Millisecond)
	return nil
}
