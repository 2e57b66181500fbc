// Package server provides the HTTP surface for the gateway: inference
// routes, the read-only reactive-agents control plane, and process
// lifecycle (start, graceful shutdown, health).
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/relaymind/relaymind/pkg/config"
	"github.com/relaymind/relaymind/pkg/limits"
	"github.com/relaymind/relaymind/pkg/pipeline"
	"github.com/relaymind/relaymind/pkg/proxy/middleware"
)

// Server is the gateway's HTTP process: route wiring, middleware chain,
// and lifecycle management, built once around a fully-wired Pipeline.
type Server struct {
	config   *config.Config
	pipeline *pipeline.Pipeline
	logger   *slog.Logger

	limitsManager *limits.Manager

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer constructs a Server around a fully-built Pipeline (dialects,
// transform engine, cache, optimizer, evaluators, observability, and
// storage already wired by the caller's cmd-level bootstrap).
func NewServer(cfg *config.Config, p *pipeline.Pipeline) *Server {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limitsManager *limits.Manager
	if cfg.Limits.RateLimits.Enabled || cfg.Limits.Budgets.Enabled {
		manager, err := buildLimitsManager(cfg.Limits)
		if err != nil {
			logger.Error("server: limits manager disabled, failed to build", "error", err)
		} else {
			limitsManager = manager
		}
	}

	return &Server{
		config:        cfg,
		pipeline:      p,
		logger:        logger,
		limitsManager: limitsManager,
		shutdownChan:  make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server: already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.Handler()

	s.httpServer = &http.Server{
		Addr:           s.config.Proxy.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Proxy.ReadTimeout,
		WriteTimeout:   s.config.Proxy.WriteTimeout,
		IdleTimeout:    s.config.Proxy.IdleTimeout,
		MaxHeaderBytes: s.config.Proxy.MaxHeaderBytes,
	}

	if s.config.Security.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("server: configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server: starting",
			"address", s.config.Proxy.ListenAddress,
			"tls_enabled", s.config.Security.TLS.Enabled,
		)

		var err error
		if s.config.Security.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(s.config.Security.TLS.CertFile, s.config.Security.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server: listen: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info("server: context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("server: received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("server: shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("server: initiating graceful shutdown", "timeout", s.config.Proxy.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Proxy.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server: shutdown error", "error", err)
				shutdownErr = fmt.Errorf("server: shutdown: %w", err)
			}
		}

		s.pipeline.Observability.Close()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server: stopped")
	})

	return shutdownErr
}

// Handler builds the complete HTTP handler: the inference routes, the
// reactive-agents control plane, health checks, all wrapped in the
// middleware chain (innermost to outermost: limits, timeout, CORS,
// requestid, logging, recovery).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, route := range inferenceRoutes {
		mux.Handle(route.path, s.handleInference(route))
	}
	mux.HandleFunc("GET /v1/files", s.filesNotImplemented)
	mux.HandleFunc("POST /v1/files", s.filesNotImplemented)

	mux.HandleFunc("GET /v1/reactive-agents/agents", s.listAgents)
	mux.HandleFunc("GET /v1/reactive-agents/skills", s.listSkills)
	mux.HandleFunc("GET /v1/reactive-agents/models", s.listModels)
	mux.HandleFunc("GET /v1/reactive-agents/providers", s.listProviders)
	mux.HandleFunc("GET /v1/reactive-agents/providers/keys", s.listProviderKeys)
	mux.HandleFunc("GET /v1/reactive-agents/evaluations", s.listEvaluationMethods)
	mux.HandleFunc("GET /v1/reactive-agents/evaluation-runs", s.listEvaluationRuns)
	mux.HandleFunc("GET /v1/reactive-agents/datasets", s.listDatasets)
	mux.HandleFunc("GET /v1/reactive-agents/logs", s.listLogs)
	mux.HandleFunc("GET /v1/reactive-agents/events", s.listEvents)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	var handler http.Handler = mux

	if s.limitsManager != nil {
		handler = middleware.LimitsMiddleware(s.limitsManager)(handler)
	}
	handler = middleware.TimeoutMiddleware(s.config.Proxy.WriteTimeout)(handler)
	handler = middleware.CORSMiddleware(s.convertCORSConfig())(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// handleHealth is the liveness probe: always 200 once the process is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe: the gateway is ready once it has at
// least one registered dialect to route traffic through.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	providers := s.pipeline.Dialects.Providers()
	if len(providers) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "no dialects registered"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "providers": providers})
}

// configureTLS builds the server's tls.Config from the security config's
// cert/key pair, enforcing TLS 1.3 and the same restricted cipher suite
// set the teacher's proxy required.
func (s *Server) configureTLS() (*tls.Config, error) {
	tlsCfg := s.config.Security.TLS
	if tlsCfg.CertFile == "" {
		return nil, fmt.Errorf("server: TLS cert file not specified")
	}
	if tlsCfg.KeyFile == "" {
		return nil, fmt.Errorf("server: TLS key file not specified")
	}
	if _, err := os.Stat(tlsCfg.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("server: TLS cert file not found: %s", tlsCfg.CertFile)
	}
	if _, err := os.Stat(tlsCfg.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("server: TLS key file not found: %s", tlsCfg.KeyFile)
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
		PreferServerCipherSuites: true,
	}, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Health performs a process-level health check; distinct from the /health
// HTTP route, used by callers embedding a Server directly.
func (s *Server) Health() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return fmt.Errorf("server: not running")
	}
	if len(s.pipeline.Dialects.Providers()) == 0 {
		return fmt.Errorf("server: no dialects registered")
	}
	return nil
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	cors := s.config.Proxy.CORS
	return &middleware.CORSConfig{
		Enabled:          cors.Enabled,
		AllowedOrigins:   cors.AllowedOrigins,
		AllowedMethods:   cors.AllowedMethods,
		AllowedHeaders:   cors.AllowedHeaders,
		ExposedHeaders:   cors.ExposedHeaders,
		MaxAge:           cors.MaxAge,
		AllowCredentials: cors.AllowCredentials,
	}
}
