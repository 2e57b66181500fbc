package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/wire"
)

// echoDialect is a minimal Dialect whose ResponseTransform always succeeds
// with a fixed reply, so attempt_test can drive runAttempt against a real
// httptest server without needing a genuine provider wire format.
type echoDialect struct {
	reply string
}

func (d *echoDialect) Name() string { return "echo" }
func (d *echoDialect) BaseURL(target dialect.Target) (string, error) {
	return target.BaseURL, nil
}
func (d *echoDialect) Headers(dialect.Target, wire.FunctionName) (map[string]string, error) {
	return map[string]string{}, nil
}
func (d *echoDialect) Endpoint(*wire.Request, dialect.Target) (string, error) { return "/chat", nil }
func (d *echoDialect) ParameterTable(wire.FunctionName) dialect.ParameterTable {
	return dialect.ParameterTable{}
}
func (d *echoDialect) ResponseTransform(body []byte, status int, headers map[string]string, strict bool, req *wire.Request) (*wire.Response, *dialect.CanonicalError) {
	if status >= 400 {
		return nil, &dialect.CanonicalError{Status: status, Message: string(body)}
	}
	return &wire.Response{
		ID:      "resp-1",
		Choices: []wire.Choice{{Index: 0, Message: &wire.ChatMessage{Role: wire.RoleAssistant, Content: d.reply}, FinishReason: wire.FinishStop}},
	}, nil
}
func (d *echoDialect) StreamChunkTransform([]byte, *dialect.StreamState, bool, *wire.Request) ([]*wire.Chunk, error) {
	return nil, nil
}
func (d *echoDialect) ErrorTransform(body []byte, status int) *dialect.CanonicalError {
	return &dialect.CanonicalError{Status: status, Message: string(body)}
}
func (d *echoDialect) CustomFieldsSchema() map[string]dialect.FieldSchema { return nil }
func (d *echoDialect) IsAPIKeyRequired() bool                             { return false }

func newTestPipelineForAttempts(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		Cache:      cache.New(cache.Config{Mode: cache.ModeSimple}),
		HTTPClient: http.DefaultClient,
		arms:       newArmLocks(),
	}
}

func TestRunAttempt_SuccessfulDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestPipelineForAttempts(t)
	dlct := &echoDialect{reply: "hello"}
	target := &strategy.Target{Name: "primary", ProviderTag: "echo", Dialect: dialect.Target{BaseURL: server.URL}}
	req := &wire.Request{Function: wire.FunctionChatComplete, Model: "test-model", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}}

	outcome := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, false, nil, nil)

	require.Equal(t, 200, outcome.status)
	require.NotNil(t, outcome.response)
	require.Equal(t, "hello", outcome.response.FirstText())
	require.Equal(t, cache.StatusMiss, outcome.cacheStatus)
}

func TestRunAttempt_CacheHitOnSecondCall(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestPipelineForAttempts(t)
	dlct := &echoDialect{reply: "hello"}
	target := &strategy.Target{Name: "primary", ProviderTag: "echo", Dialect: dialect.Target{BaseURL: server.URL, Model: "test-model"}}
	req := &wire.Request{Function: wire.FunctionChatComplete, Model: "test-model", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}}

	first := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, false, nil, nil)
	require.Equal(t, cache.StatusMiss, first.cacheStatus)

	second := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, false, nil, nil)
	require.Equal(t, cache.StatusHit, second.cacheStatus)
	require.Equal(t, 1, hits)
}

func TestRunAttempt_UpstreamErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limit exceeded, please slow down"}`))
	}))
	defer server.Close()

	p := newTestPipelineForAttempts(t)
	dlct := &echoDialect{reply: "hello"}
	target := &strategy.Target{Name: "primary", ProviderTag: "echo", Dialect: dialect.Target{BaseURL: server.URL}}
	req := &wire.Request{Function: wire.FunctionChatComplete, Model: "test-model", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}}

	outcome := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, false, nil, nil)

	require.Equal(t, 429, outcome.status)
	require.Error(t, outcome.err)
	require.Nil(t, outcome.response)
}

func TestRunAttempt_WantStreamSynthesizesChunksFromBufferedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestPipelineForAttempts(t)
	dlct := &echoDialect{reply: "hello there"}
	target := &strategy.Target{Name: "primary", ProviderTag: "echo", Dialect: dialect.Target{BaseURL: server.URL}}
	req := &wire.Request{Function: wire.FunctionChatComplete, Model: "test-model", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}}

	outcome := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, true, nil, nil)

	require.True(t, len(outcome.chunks) > 0)
	require.True(t, outcome.chunks[len(outcome.chunks)-1].Done)

	accumulated, err := wire.AccumulateChunks(outcome.chunks)
	require.NoError(t, err)
	require.Equal(t, "hello there", accumulated.FirstText())
}

type denyHook struct{ reason string }

func (h *denyHook) Name() string                  { return "deny-all" }
func (h *denyHook) RunsAt(stage hooks.Stage) bool  { return stage == hooks.StageOutput }
func (h *denyHook) Evaluate(ctx context.Context, inv *hooks.Invocation) (*hooks.Verdict, error) {
	return &hooks.Verdict{DenyRequest: true, DenyReason: h.reason}, nil
}

func TestRunAttempt_OutputHookDenyAbortsWith446(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestPipelineForAttempts(t)
	dlct := &echoDialect{reply: "hello"}
	target := &strategy.Target{Name: "primary", ProviderTag: "echo", Dialect: dialect.Target{BaseURL: server.URL}}
	req := &wire.Request{Function: wire.FunctionChatComplete, Model: "test-model", Messages: []wire.ChatMessage{{Role: wire.RoleUser, Content: "hi"}}}

	outcome := p.runAttempt(context.Background(), dlct, target, req, req.Function, false, false, false, []hooks.Hook{&denyHook{reason: "policy violation"}}, nil)

	require.True(t, outcome.denied)
	require.Equal(t, "policy violation", outcome.denyReason)
	require.Equal(t, hooks.DeniedStatus, outcome.status)
}
