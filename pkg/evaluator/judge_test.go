package evaluator

import (
	"context"
	"testing"

	"github.com/relaymind/relaymind/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	reply string
	err   error
	calls int
}

func (j *fakeJudge) Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	j.calls++
	return j.reply, j.err
}

func testLog() Log {
	return Log{
		Conversation: []wire.ChatMessage{
			{Role: wire.RoleSystem, Content: "You are a helpful support agent."},
			{Role: wire.RoleUser, Content: "What is my order status?"},
		},
		ResponseBody: &wire.Response{
			Choices: []wire.Choice{{Message: &wire.ChatMessage{Content: "Your order ships tomorrow."}}},
		},
	}
}

func TestJudgeMethod_ParsesJSONEnvelope(t *testing.T) {
	judge := &fakeJudge{reply: `{"criteria": ["addresses the question"], "score": 0.9, "reasoning": "good"}`}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	res, err := m.EvaluateLog(context.Background(), testLog(), Params{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, res.Score)
	assert.Equal(t, 1, judge.calls)
}

func TestJudgeMethod_StrictModeCollapsesSubOneScore(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 0.99}`}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	res, err := m.EvaluateLog(context.Background(), testLog(), Params{StrictMode: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}

func TestJudgeMethod_StrictModeLeavesPerfectScoreAlone(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 1.0}`}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	res, err := m.EvaluateLog(context.Background(), testLog(), Params{StrictMode: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestJudgeMethod_TolerantOfFencedReply(t *testing.T) {
	judge := &fakeJudge{reply: "Here is my assessment:\n```json\n{\"score\": 0.7}\n```\n"}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	res, err := m.EvaluateLog(context.Background(), testLog(), Params{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.7, res.Score)
}

func TestJudgeMethod_UnparseableReplyYieldsNeutralWithErrorNote(t *testing.T) {
	judge := &fakeJudge{reply: "I cannot comply with structured output."}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	res, err := m.EvaluateLog(context.Background(), testLog(), Params{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Score)
	assert.NotEmpty(t, res.Error)
}

func TestJudgeMethod_NoJudgeConfiguredErrors(t *testing.T) {
	m := newJudgeMethod(defaultJudgeSpecs()[0], nil)
	_, err := m.EvaluateLog(context.Background(), testLog(), Params{}, nil)
	require.Error(t, err)
}

func TestJudgeMethod_RefusesBeyondMaxDepth(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 1.0}`}
	m := newJudgeMethod(defaultJudgeSpecs()[0], judge)

	ctx := context.Background()
	for i := 0; i <= MaxJudgeDepth; i++ {
		ctx = WithJudgeDepth(ctx)
	}

	_, err := m.EvaluateLog(ctx, testLog(), Params{}, nil)
	require.Error(t, err)
	assert.Equal(t, 0, judge.calls)
}

func TestAllFiveJudgeMethodsAreRegisteredUnderDistinctNames(t *testing.T) {
	seen := map[string]bool{}
	for _, spec := range defaultJudgeSpecs() {
		assert.False(t, seen[spec.name], "duplicate judge method name %q", spec.name)
		seen[spec.name] = true
	}
	assert.Len(t, seen, 5)
}
