package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Judge is the reentrant call path an LLM-judge method uses to ask the
// configured judge model a question. pkg/pipeline implements this by
// routing back through the gateway's own Serve path against an
// internal-skill allow-list, carrying the depth-incremented context so
// nested judge calls hit checkJudgeDepth.
type Judge interface {
	Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// judgeSpec describes one LLM-judge method's fixed prompt templates. The
// five built-in methods differ only in these templates and their name; the
// scoring/parsing/strict_mode machinery is shared.
type judgeSpec struct {
	name              string
	systemPromptTmpl  string
	userPromptBuilder func(log Log) string
}

func defaultJudgeSpecs() []judgeSpec {
	return []judgeSpec{
		{
			name:             "faithfulness",
			systemPromptTmpl: "You are grading whether an assistant's response is faithful to the information available to it, without fabricating facts not supported by the conversation or tool results. Respond with a JSON object: {\"criteria\": [...], \"score\": <0..1>, \"reasoning\": \"...\"}.",
			userPromptBuilder: func(log Log) string {
				return fmt.Sprintf("Conversation:\n%s\n\nAssistant response:\n%s", renderConversation(log.Conversation), log.ResponseBody.FirstText())
			},
		},
		{
			name:             "role_adherence",
			systemPromptTmpl: "You are grading whether an assistant stayed within its assigned role/persona throughout the conversation, never breaking character or claiming capabilities it was not given. Respond with a JSON object: {\"criteria\": [...], \"score\": <0..1>, \"reasoning\": \"...\"}.",
			userPromptBuilder: func(log Log) string {
				return fmt.Sprintf("System prompt:\n%s\n\nConversation:\n%s", systemPromptOf(log.Conversation), renderConversation(log.Conversation))
			},
		},
		{
			name:             "conversation_completeness",
			systemPromptTmpl: "You are grading whether an assistant's response fully addresses every question or request raised across the conversation, leaving nothing unanswered. Respond with a JSON object: {\"criteria\": [...], \"score\": <0..1>, \"overall_success\": <bool>}.",
			userPromptBuilder: func(log Log) string {
				return fmt.Sprintf("Conversation:\n%s\n\nFinal response:\n%s", renderConversation(log.Conversation), log.ResponseBody.FirstText())
			},
		},
		{
			name:             "task_completion",
			systemPromptTmpl: "You are grading whether the assistant's response completes the task requested by the user, end to end. Respond with a JSON object: {\"criteria\": [...], \"score\": <0..1>, \"overall_success\": <bool>}.",
			userPromptBuilder: func(log Log) string {
				return fmt.Sprintf("Task:\n%s\n\nResponse:\n%s", renderConversation(log.Conversation), log.ResponseBody.FirstText())
			},
		},
		{
			name:             "argument_correctness",
			systemPromptTmpl: "You are grading whether any tool/function call arguments in the assistant's response are well-formed and consistent with the conversation's stated constraints. Respond with a JSON object: {\"criteria\": [...], \"score\": <0..1>, \"reasoning\": \"...\"}.",
			userPromptBuilder: func(log Log) string {
				return fmt.Sprintf("Conversation:\n%s\n\nTool calls issued:\n%s", renderConversation(log.Conversation), renderToolCalls(log.ResponseBody))
			},
		},
	}
}

// judgeEnvelope is the JSON shape an LLM judge's reply is parsed as.
type judgeEnvelope struct {
	Criteria       []string `json:"criteria"`
	Score          float64  `json:"score"`
	Reasoning      string   `json:"reasoning"`
	OverallSuccess *bool    `json:"overall_success"`
}

// judgeMethod is the shared implementation behind every LLM-judge method.
type judgeMethod struct {
	spec  judgeSpec
	judge Judge
}

func newJudgeMethod(spec judgeSpec, judge Judge) *judgeMethod {
	return &judgeMethod{spec: spec, judge: judge}
}

func (m *judgeMethod) Name() string { return m.spec.name }

func (m *judgeMethod) EvaluateLog(ctx context.Context, log Log, params Params, storage Storage) (Result, error) {
	if m.judge == nil {
		return Result{}, fmt.Errorf("evaluator: %s: no judge configured", m.spec.name)
	}
	if err := checkJudgeDepth(ctx); err != nil {
		return Result{}, err
	}

	reply, err := m.judge.Ask(WithJudgeDepth(ctx), m.spec.systemPromptTmpl, m.spec.userPromptBuilder(log))
	if err != nil {
		return Result{}, fmt.Errorf("evaluator: %s: judge call: %w", m.spec.name, err)
	}

	env, err := parseJudgeEnvelope(reply)
	if err != nil {
		return Result{Score: 0.5, Error: fmt.Sprintf("%s: %v", m.spec.name, err)}, nil
	}

	score := clampScore(env.Score)
	if params.StrictMode && score < 1.0 {
		score = 0.0
	}

	display := env.Criteria
	if env.Reasoning != "" {
		display = append(display, env.Reasoning)
	}

	extras := map[string]interface{}{}
	if env.OverallSuccess != nil {
		extras["overall_success"] = *env.OverallSuccess
	}

	return Result{Score: score, Extras: extras, DisplayInfo: display}, nil
}

// parseJudgeEnvelope extracts the JSON object from a judge reply, tolerating
// surrounding prose or a fenced code block the way most chat models wrap
// structured output even when asked not to.
func parseJudgeEnvelope(reply string) (judgeEnvelope, error) {
	raw := strings.TrimSpace(reply)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return judgeEnvelope{}, fmt.Errorf("no JSON object found in judge reply")
	}

	var env judgeEnvelope
	if err := json.Unmarshal([]byte(raw[start:end+1]), &env); err != nil {
		return judgeEnvelope{}, fmt.Errorf("invalid judge JSON envelope: %w", err)
	}
	return env, nil
}
