package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/storage"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/transform"
	"github.com/relaymind/relaymind/pkg/wire"
)

func newTestPipeline(t *testing.T, conn storage.Connector) *Pipeline {
	t.Helper()
	obs := observability.NewBuilder(storage.ObservabilityStore{Connector: conn}, observability.DefaultConfig(), nil)
	t.Cleanup(obs.Close)
	return New(
		dialect.NewRegistry(),
		transform.NewEngine(),
		cache.New(cache.Config{Mode: cache.ModeSimple}),
		nil,
		evaluator.NewRegistry(),
		obs,
		nil,
		conn,
		http.DefaultClient,
		nil,
	)
}

func unoptimizedSeed(conn *storage.MemoryConnector) {
	conn.SeedAgent(&storage.Agent{ID: "agent-1", Name: "support-bot"})
	conn.SeedSkill(&storage.Skill{ID: "skill-1", AgentID: "agent-1", Name: "triage", Optimize: false})
}

func TestServe_SingleTargetChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	conn := storage.NewMemoryConnector()
	unoptimizedSeed(conn)
	p := newTestPipeline(t, conn)
	p.Dialects.Register(&echoDialect{reply: "pong"})

	in := Inbound{
		Request:   &wire.Request{Function: wire.FunctionChatComplete, Model: "m", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "ping"}}},
		AgentName: "support-bot",
		SkillName: "triage",
		Config: RequestConfig{
			Mode:    strategy.ModeSingle,
			Targets: []ConfiguredTarget{{Name: "primary", ProviderTag: "echo", BaseURL: server.URL}},
		},
	}

	result, err := p.Serve(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "pong", result.Response.FirstText())
	require.Equal(t, 200, result.Record.Status)
	require.Equal(t, "agent-1", result.Record.AgentID)
}

func TestServe_FallbackAdvancesOnRetryableStatus(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "down"}`))
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer healthy.Close()

	conn := storage.NewMemoryConnector()
	unoptimizedSeed(conn)
	p := newTestPipeline(t, conn)
	p.Dialects.Register(&echoDialect{reply: "from-fallback"})

	in := Inbound{
		Request:   &wire.Request{Function: wire.FunctionChatComplete, Model: "m", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "ping"}}},
		AgentName: "support-bot",
		SkillName: "triage",
		Config: RequestConfig{
			Mode: strategy.ModeFallback,
			Targets: []ConfiguredTarget{
				{Name: "primary", ProviderTag: "echo", BaseURL: failing.URL},
				{Name: "secondary", ProviderTag: "echo", BaseURL: healthy.URL},
			},
		},
	}

	result, err := p.Serve(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "from-fallback", result.Response.FirstText())
	require.Equal(t, "secondary", result.Record.Provider)
}

func TestServe_OutputHookDenyReturnsDeniedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	conn := storage.NewMemoryConnector()
	unoptimizedSeed(conn)
	p := newTestPipeline(t, conn)
	p.Dialects.Register(&echoDialect{reply: "secret"})

	in := Inbound{
		Request:   &wire.Request{Function: wire.FunctionChatComplete, Model: "m", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "ping"}}},
		AgentName: "support-bot",
		SkillName: "triage",
		Config: RequestConfig{
			Mode:    strategy.ModeSingle,
			Targets: []ConfiguredTarget{{Name: "primary", ProviderTag: "echo", BaseURL: server.URL}},
			Hooks:   []hooks.Hook{&denyHook{reason: "contains secret"}},
		},
	}

	result, err := p.Serve(context.Background(), in)
	require.Error(t, err)
	require.Nil(t, result)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "contains secret", denied.Reason)
}

func TestServe_UnknownAgentIsNotFound(t *testing.T) {
	conn := storage.NewMemoryConnector()
	p := newTestPipeline(t, conn)

	in := Inbound{
		Request:   &wire.Request{Function: wire.FunctionChatComplete, Model: "m", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}},
		AgentName: "nobody",
		SkillName: "triage",
		Config: RequestConfig{
			Mode:    strategy.ModeSingle,
			Targets: []ConfiguredTarget{{Name: "primary", ProviderTag: "echo"}},
		},
	}

	_, err := p.Serve(context.Background(), in)
	require.Error(t, err)
	var notFound *AgentNotFoundError
	require.ErrorAs(t, err, &notFound)
}
