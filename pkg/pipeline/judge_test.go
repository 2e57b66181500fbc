package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/storage"
	"github.com/relaymind/relaymind/pkg/strategy"
)

func TestGatewayJudge_AskBeforeBindReturnsError(t *testing.T) {
	judge := NewGatewayJudge()
	_, err := judge.Ask(context.Background(), "system", "user")
	require.Error(t, err)
}

func TestGatewayJudge_AskReentersPipelineAtReservedSkill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	conn := storage.NewMemoryConnector()
	p := newTestPipeline(t, conn)
	p.Dialects.Register(&echoDialect{reply: `{"criteria":[],"score":1,"reasoning":"fine","overall_success":true}`})

	p.JudgeConfig = RequestConfig{
		Mode:    strategy.ModeSingle,
		Targets: []ConfiguredTarget{{Name: "judge-target", ProviderTag: "echo", BaseURL: server.URL, Model: "judge-model"}},
	}

	judge := NewGatewayJudge()
	judge.Bind(p)

	reply, err := judge.Ask(context.Background(), "judge this", "conversation transcript")
	require.NoError(t, err)
	require.Contains(t, reply, "overall_success")
}

func TestGatewayJudge_SatisfiesEvaluatorJudgeInterface(t *testing.T) {
	var _ evaluator.Judge = NewGatewayJudge()
}
