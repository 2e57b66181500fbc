package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/embedding"
	"github.com/relaymind/relaymind/pkg/evaluator"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/observability"
	"github.com/relaymind/relaymind/pkg/optimizer"
	"github.com/relaymind/relaymind/pkg/storage"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/transform"
	"github.com/relaymind/relaymind/pkg/wire"
)

// nullEvaluatorStorage satisfies evaluator.Storage. None of the built-in
// methods look up sibling logs; a real dataset-backed evaluator.Storage can
// be layered in later without touching the Method interface.
type nullEvaluatorStorage struct{}

func (nullEvaluatorStorage) GetLog(ctx context.Context, requestID string) (*evaluator.Log, error) {
	return nil, fmt.Errorf("pipeline: evaluator storage lookup not available for %q", requestID)
}

// Pipeline wires the C1-C8 collaborators together and implements the
// request lifecycle. One Pipeline serves a whole process's traffic; it is
// safe for concurrent use.
type Pipeline struct {
	Dialects      *dialect.Registry
	Transform     *transform.Engine
	Cache         *cache.Cache
	Optimizer     *optimizer.Optimizer
	Evaluators    *evaluator.Registry
	Observability *observability.Builder
	Embedder      embedding.Provider
	Storage       storage.Connector
	HTTPClient    *http.Client
	Logger        *slog.Logger

	// RequestTimeout bounds each upstream HTTP attempt; zero means no
	// per-attempt timeout beyond ctx's own deadline.
	RequestTimeout time.Duration

	// JudgeConfig is the RequestConfig a reentrant evaluator.Judge call
	// uses to reach a configured judge model. Built once by the caller
	// (pkg/server/cmd wiring) from the evaluator config's judge model tag
	// plus a resolved provider key, addressed at the reserved system
	// agent/judge skill so it never collides with real traffic.
	JudgeConfig RequestConfig

	arms *armLocks
}

// New constructs a Pipeline. transformEngine, cache, optimizer, evaluators,
// observability, embedder, store and client must all be non-nil; logger
// defaults to slog.Default() if nil.
func New(dialects *dialect.Registry, tx *transform.Engine, ch *cache.Cache, opt *optimizer.Optimizer, evals *evaluator.Registry, obs *observability.Builder, embedder embedding.Provider, store storage.Connector, client *http.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Dialects:      dialects,
		Transform:     tx,
		Cache:         ch,
		Optimizer:     opt,
		Evaluators:    evals,
		Observability: obs,
		Embedder:      embedder,
		Storage:       store,
		HTTPClient:    client,
		Logger:        logger.With("component", "pipeline"),
		arms:          newArmLocks(),
	}
}

// Serve runs the full request lifecycle: resolve agent/skill, embed when
// the function supports semantic routing, pick an optimizer arm, run input
// hooks, dispatch through the strategy/retry/cache loop, run output hooks,
// score and reward, and log. A client-cancelled ctx aborts the in-flight
// upstream call; the partial record is still submitted with whatever status
// was reached. The evaluation pass started after a response runs detached
// from ctx, so cancelling ctx does not stop its judge calls.
func (p *Pipeline) Serve(ctx context.Context, in Inbound) (*ServeResult, error) {
	if in.Request == nil {
		return nil, &ValidationError{Message: "inbound request is nil"}
	}
	if err := in.Request.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := in.Config.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	record := &observability.Record{
		RequestID:    uuid.NewString(),
		TraceID:      in.Config.TraceID,
		SpanID:       in.Config.SpanID,
		FunctionName: in.Request.Function,
		Method:       string(in.Request.Function),
		RequestBody:  in.Request,
		StartTimeMS:  nowMS(),
		CacheStatus:  observability.CacheNA,
	}

	result, err := p.serve(ctx, in, record)

	record.EndTimeMS = nowMS()
	record.Finalize()
	if err != nil && record.Status == 0 {
		record.Status = 500
	}
	p.Observability.Submit(record)

	return result, err
}

func (p *Pipeline) serve(ctx context.Context, in Inbound, record *observability.Record) (*ServeResult, error) {
	agent, err := resolveAgent(ctx, p.Storage, in.AgentName)
	if err != nil {
		return nil, err
	}
	skill, err := resolveSkill(ctx, p.Storage, agent.ID, in.SkillName)
	if err != nil {
		return nil, err
	}
	record.AgentID = agent.ID
	record.SkillID = skill.ID

	req := in.Request

	var vector []float32
	if skill.Optimize && req.Function.SupportsSemanticRouting() {
		messages, merr := wire.ExtractMessages(req)
		if merr == nil {
			text := wire.UserVisibleText(messages)
			vector, err = p.Embedder.Embed(ctx, text)
			if err != nil {
				p.Logger.Warn("pipeline: embedding failed, continuing unoptimized", "error", err, "skill_id", skill.ID)
				vector = nil
			}
		}
	}
	record.Embedding = vector

	rng := in.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	var decision *optimizer.Decision
	if skill.Optimize && vector != nil {
		skillCfg := optimizer.SkillConfig{
			ID:                          skill.ID,
			ConfigurationCount:          skill.ConfigurationCount,
			SystemPromptCount:           skill.SystemPromptCount,
			ClusteringInterval:          skill.ClusteringInterval,
			ExplorationTemperature:      skill.ExplorationTemperature,
			ReflectionMinRequestsPerArm: skill.ReflectionMinRequestsPerArm,
		}
		decision, err = p.Optimizer.Pick(ctx, skillCfg, vector, in.Config.SystemPromptVariables, in.Config.SystemPromptAllowList, rng)
		if err != nil {
			p.Logger.Warn("pipeline: optimizer pick failed, continuing unoptimized", "error", err, "skill_id", skill.ID)
			decision = nil
		} else {
			record.ArmID = decision.Arm.ID
			record.ClusterID = decision.Cluster.ID
		}
	}

	effectiveReq := req
	if decision != nil {
		effectiveReq = applyOptimizerParams(req, decision.Params)
	}
	record.RequestBody = effectiveReq

	targets := buildStrategyTargets(in.Config, decision)
	for _, t := range targets {
		if _, err := dialectOf(p.Dialects, t.Name, t.ProviderTag); err != nil {
			return nil, err
		}
	}

	inputBody, err := requestToBody(effectiveReq)
	if err != nil {
		return nil, err
	}

	if len(in.Config.Hooks) > 0 {
		inputResult, err := hooks.RunInput(ctx, in.Config.Hooks, inputBody, effectiveReq)
		if err != nil {
			return nil, fmt.Errorf("pipeline: input hooks: %w", err)
		}
		record.HookLog = append(record.HookLog, inputResult.Log...)
		if inputResult.Denied {
			record.Status = hooks.DeniedStatus
			return nil, &DeniedError{Reason: inputResult.DenyReason}
		}
		if inputResult.Body != nil {
			effectiveReq, err = bodyToRequest(inputResult.Body, effectiveReq)
			if err != nil {
				return nil, err
			}
			inputBody = inputResult.Body
		}
	}

	stratCfg := strategy.Config{
		Mode:          in.Config.Mode,
		Targets:       targets,
		Conditions:    in.Config.Conditions,
		DefaultIndex:  in.Config.DefaultIndex,
		OnStatusCodes: in.Config.OnStatusCodes,
	}
	if len(stratCfg.OnStatusCodes) == 0 {
		stratCfg.OnStatusCodes = strategy.DefaultOnStatusCodes()
	}

	planner, err := strategy.NewPlanner(stratCfg, inputBody, rng)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	target, err := planner.First()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	attempt := 0
	var outcome attemptOutcome
	for {
		dlct, derr := dialectOf(p.Dialects, target.Name, target.ProviderTag)
		if derr != nil {
			return nil, derr
		}

		outcome = p.runAttempt(ctx, dlct, target, effectiveReq, effectiveReq.Function, in.Config.StrictCompliance, in.Config.ForceRefresh, in.WantStream, in.Config.Hooks, vector)
		record.CacheStatus = cacheStatusOf(outcome.cacheStatus)

		if outcome.denied {
			record.HookLog = append(record.HookLog, outcome.hookLog...)
			record.Status = hooks.DeniedStatus
			return nil, &DeniedError{Reason: outcome.denyReason}
		}
		record.HookLog = append(record.HookLog, outcome.hookLog...)

		if isSuccessStatus(outcome.status) {
			break
		}

		if target.Retry.ShouldRetry(attempt, outcome.status) {
			attempt++
			continue
		}

		nextTarget, ok, nerr := planner.Next(outcome.status)
		if nerr != nil {
			return nil, fmt.Errorf("pipeline: %w", nerr)
		}
		if !ok {
			break
		}
		target = nextTarget
		attempt = 0
	}

	record.Provider = target.ProviderTag
	record.Model = target.Dialect.Model
	record.Status = outcome.status

	if outcome.err != nil && outcome.response == nil {
		return nil, fmt.Errorf("pipeline: upstream dispatch failed: %w", outcome.err)
	}

	record.ResponseBody = outcome.response

	if decision != nil && skill.Optimize && len(in.Config.EvaluationMethods) > 0 {
		// Evaluation reenters the pipeline as a judge call and must not
		// hold the client's response up; it runs detached from ctx (the
		// client has already gotten its answer by the time this
		// completes) on a copy of the record, logged via a follow-up
		// Update rather than mutating what Serve already Submitted.
		recordCopy := *record
		go p.evaluateAndReward(in, skill, decision, effectiveReq, outcome, &recordCopy)
	}

	return &ServeResult{Response: outcome.response, Chunks: outcome.chunks, Record: record}, nil
}

// DeniedError is returned when an input or output hook denies a request.
type DeniedError struct{ Reason string }

func (e *DeniedError) Error() string {
	return fmt.Sprintf("pipeline: request denied: %s", e.Reason)
}

// ValidationError is returned when the inbound request or its config
// envelope fails the structural checks step 1 of the request lifecycle
// owns, before anything reaches a dialect or upstream.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pipeline: invalid request: %s", e.Message)
}

func cacheStatusOf(s cache.Status) observability.CacheStatus {
	switch s {
	case cache.StatusHit:
		return observability.CacheHit
	case cache.StatusMiss:
		return observability.CacheMiss
	default:
		return observability.CacheNA
	}
}

// evaluationTimeout bounds the detached evaluation/reward pass started
// after a response has already gone out to the client.
const evaluationTimeout = 30 * time.Second

// evaluateAndReward runs the configured evaluation methods against the
// completed request and feeds the averaged score back to the optimizer arm,
// serialized per arm id. Evaluation and reward are best-effort: failures are
// logged, never surfaced to the caller, since the response has already been
// returned by the time this runs. record is a private copy the caller made
// for this goroutine; it is never the one Serve already Submitted.
func (p *Pipeline) evaluateAndReward(in Inbound, skill *storage.Skill, decision *optimizer.Decision, req *wire.Request, outcome attemptOutcome, record *observability.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()

	messages, _ := wire.ExtractMessages(req)
	if outcome.response != nil && outcome.response.FirstText() != "" {
		messages = append(messages, wire.ChatMessage{Role: wire.RoleAssistant, Content: outcome.response.FirstText()})
	}

	evalLog := evaluator.Log{
		RequestID:    record.RequestID,
		AgentID:      record.AgentID,
		SkillID:      record.SkillID,
		ArmID:        decision.Arm.ID,
		Provider:     record.Provider,
		Model:        record.Model,
		FunctionName: req.Function,
		RequestBody:  req,
		ResponseBody: outcome.response,
		StartTimeMS:  record.StartTimeMS,
		FirstTokenMS: record.FirstTokenMS,
		EndTimeMS:    nowMS(),
		Conversation: messages,
	}

	var results []evaluator.Result
	for _, name := range in.Config.EvaluationMethods {
		method, err := p.Evaluators.Get(name)
		if err != nil {
			p.Logger.Warn("pipeline: unknown evaluation method", "method", name, "error", err)
			continue
		}
		res, err := method.EvaluateLog(ctx, evalLog, in.Config.EvaluationParams, nullEvaluatorStorage{})
		if err != nil {
			p.Logger.Warn("pipeline: evaluation method failed", "method", name, "error", err)
			continue
		}
		results = append(results, res)
		record.Evaluations = append(record.Evaluations, observability.EvaluationRecord{Method: name, Result: res})
	}
	if len(results) == 0 {
		return
	}

	reward := evaluator.AverageReward(results)
	record.AvgEvalScore = reward
	p.Observability.Update(record)

	p.arms.withArmLock(decision.Arm.ID, func() {
		if err := p.Optimizer.Reward(ctx, decision.Arm.ID, reward); err != nil {
			p.Logger.Error("pipeline: reward arm failed", "arm_id", decision.Arm.ID, "error", err)
		}
	})

	clusters, err := p.Storage.GetSkillOptimizationClusters(ctx, skill.ID)
	if err != nil {
		p.Logger.Warn("pipeline: recluster skipped, could not load clusters", "skill_id", skill.ID, "error", err)
		return
	}
	skillCfg := optimizer.SkillConfig{
		ID:                          skill.ID,
		ConfigurationCount:          skill.ConfigurationCount,
		SystemPromptCount:           skill.SystemPromptCount,
		ClusteringInterval:          skill.ClusteringInterval,
		ExplorationTemperature:      skill.ExplorationTemperature,
		ReflectionMinRequestsPerArm: skill.ReflectionMinRequestsPerArm,
	}
	if err := p.Optimizer.MaybeRecluster(ctx, skillCfg, clusters, [][]float32{record.Embedding}); err != nil {
		p.Logger.Warn("pipeline: recluster failed", "skill_id", skill.ID, "error", err)
	}
}

func nowMS() int64 {
	return time.Now().UnixMilli()
}
