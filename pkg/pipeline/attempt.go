package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/relaymind/relaymind/pkg/cache"
	"github.com/relaymind/relaymind/pkg/classifier"
	"github.com/relaymind/relaymind/pkg/dialect"
	"github.com/relaymind/relaymind/pkg/hooks"
	"github.com/relaymind/relaymind/pkg/strategy"
	"github.com/relaymind/relaymind/pkg/wire"
)

// statusError carries the outward HTTP status alongside the classified
// cause, so the single-flight closure's (resp, error) return still lets
// the caller recover the status every waiter needs for the retry decision.
type statusError struct {
	status int
	cause  error
}

func (e *statusError) Error() string { return e.cause.Error() }
func (e *statusError) Unwrap() error  { return e.cause }

// classifiedError wraps one pkg/classifier Result as an error value.
type classifiedError struct {
	result classifier.Result
}

func (e *classifiedError) Error() string { return e.result.Message }

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// runAttempt executes one strategy attempt against target: cache probe,
// upstream dispatch (coalesced by fingerprint), response normalization, and
// output hooks. It never returns an error itself - failures are folded into
// the returned attemptOutcome so the strategy loop in Serve can apply the
// target's retry policy uniformly.
func (p *Pipeline) runAttempt(ctx context.Context, dlct dialect.Dialect, target *strategy.Target, req *wire.Request, function wire.FunctionName, strict, forceRefresh, wantStream bool, hookList []hooks.Hook, vector []float32) attemptOutcome {
	fingerprint := cache.Fingerprint(target.ProviderTag, target.Dialect.Model, function, req, strict)

	if entry, status := p.Cache.Lookup(fingerprint, vector, forceRefresh); status == cache.StatusHit {
		chunks := entry.Chunks
		if wantStream && chunks == nil {
			chunks = wire.SynthesizeChunks(entry.Response, uuid.NewString())
		}
		outcome := attemptOutcome{status: 200, response: entry.Response, chunks: chunks, cacheStatus: cache.StatusHit}
		return p.runOutputHooks(ctx, hookList, req, outcome)
	}

	table := dlct.ParameterTable(function)
	if table == nil {
		return attemptOutcome{
			status:      400,
			err:         fmt.Errorf("pipeline: provider %q has no parameter table for function %s", target.ProviderTag, function),
			cacheStatus: cache.StatusMiss,
		}
	}

	var leaderChunks []*wire.Chunk
	resp, cerr, _ := p.Cache.Coalesce(ctx, fingerprint, func() (*wire.Response, error) {
		r, chunks, status, derr := p.dispatchUpstream(ctx, dlct, target, req, table, function, strict, wantStream)
		if derr != nil {
			return nil, &statusError{status: status, cause: derr}
		}
		leaderChunks = chunks
		if len(chunks) > 0 {
			p.Cache.PutStream(fingerprint, vector, r, chunks)
		} else {
			p.Cache.Put(fingerprint, vector, r)
		}
		return r, nil
	})

	if cerr != nil {
		status := 500
		var se *statusError
		if asStatusError(cerr, &se) {
			status = se.status
		}
		return attemptOutcome{status: status, err: cerr, cacheStatus: cache.StatusMiss}
	}

	chunks := leaderChunks
	if wantStream && chunks == nil {
		// A coalesced waiter (or a non-streaming upstream) has no raw
		// chunks to replay; synthesize from the shared accumulated
		// response instead, the same fallback used for a non-streaming
		// upstream serving a streaming client.
		chunks = wire.SynthesizeChunks(resp, uuid.NewString())
	}

	outcome := attemptOutcome{status: 200, response: resp, chunks: chunks, cacheStatus: cache.StatusMiss}
	return p.runOutputHooks(ctx, hookList, req, outcome)
}

// asStatusError is errors.As without importing errors twice for one
// one-line helper used only here.
func asStatusError(err error, target **statusError) bool {
	for err != nil {
		if se, ok := err.(*statusError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (p *Pipeline) runOutputHooks(ctx context.Context, hookList []hooks.Hook, req *wire.Request, outcome attemptOutcome) attemptOutcome {
	if len(hookList) == 0 || outcome.response == nil {
		return outcome
	}

	body, err := responseToBody(outcome.response)
	if err != nil {
		outcome.err = err
		return outcome
	}

	result, err := hooks.RunOutput(ctx, hookList, body, outcome.status, req)
	if err != nil {
		outcome.err = err
		return outcome
	}
	outcome.hookLog = result.Log

	if result.Denied {
		outcome.denied = true
		outcome.denyReason = result.DenyReason
		outcome.status = hooks.DeniedStatus
		return outcome
	}

	if result.Body != nil {
		if merged, err := bodyToResponse(result.Body, outcome.response); err == nil {
			outcome.response = merged
		}
	}
	return outcome
}

// dispatchUpstream builds the upstream HTTP request from req via the
// dialect's parameter table, performs the call, and normalizes the result.
// It is the function single-flight coalescing runs at most once per
// in-flight fingerprint.
func (p *Pipeline) dispatchUpstream(ctx context.Context, dlct dialect.Dialect, target *strategy.Target, req *wire.Request, table dialect.ParameterTable, function wire.FunctionName, strict, wantStream bool) (*wire.Response, []*wire.Chunk, int, error) {
	txResult, err := p.Transform.Apply(table, req, nil)
	if err != nil {
		return nil, nil, 400, fmt.Errorf("pipeline: transform: %w", err)
	}

	baseURL, err := dlct.BaseURL(target.Dialect)
	if err != nil {
		return nil, nil, 502, err
	}
	endpoint, err := dlct.Endpoint(req, target.Dialect)
	if err != nil {
		return nil, nil, 502, err
	}
	headers, err := dlct.Headers(target.Dialect, function)
	if err != nil {
		return nil, nil, 502, err
	}

	bodyBytes, err := json.Marshal(txResult.Body)
	if err != nil {
		return nil, nil, 500, fmt.Errorf("pipeline: encode upstream body: %w", err)
	}

	reqCtx := ctx
	if p.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.RequestTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, strings.TrimRight(baseURL, "/")+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, nil, 500, fmt.Errorf("pipeline: build upstream request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		if reqCtx.Err() != nil {
			cls := classifier.Classify(target.ProviderTag, 408, map[string]interface{}{"message": "request timed out"})
			return nil, nil, cls.Status, &classifiedError{result: cls}
		}
		cls := classifier.Classify(target.ProviderTag, 502, map[string]interface{}{"message": err.Error()})
		return nil, nil, cls.Status, &classifiedError{result: cls}
	}
	defer httpResp.Body.Close()

	if isEventStream(httpResp.Header.Get("Content-Type")) {
		chunks, err := p.readSSE(httpResp.Body, dlct, strict, req)
		if err != nil {
			return nil, nil, 502, err
		}
		resp, err := wire.AccumulateChunks(chunks)
		if err != nil {
			return nil, nil, 502, err
		}
		resp.Provider = target.ProviderTag
		if wantStream {
			return resp, chunks, httpResp.StatusCode, nil
		}
		return resp, nil, httpResp.StatusCode, nil
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, 502, fmt.Errorf("pipeline: read upstream body: %w", err)
	}

	if !isSuccessStatus(httpResp.StatusCode) {
		canonical := dlct.ErrorTransform(raw, httpResp.StatusCode)
		if canonical == nil {
			canonical = &dialect.CanonicalError{Status: httpResp.StatusCode, Provider: target.ProviderTag, Message: string(raw)}
		}
		cls := classifier.Classify(target.ProviderTag, canonical.Status, canonicalPayload(canonical))
		return nil, nil, cls.Status, &classifiedError{result: cls}
	}

	resp, canonical := dlct.ResponseTransform(raw, httpResp.StatusCode, headersToMap(httpResp.Header), strict, req)
	if canonical != nil {
		cls := classifier.Classify(target.ProviderTag, canonical.Status, canonicalPayload(canonical))
		return nil, nil, cls.Status, &classifiedError{result: cls}
	}
	resp.Provider = target.ProviderTag

	if wantStream {
		return resp, wire.SynthesizeChunks(resp, uuid.NewString()), httpResp.StatusCode, nil
	}
	return resp, nil, httpResp.StatusCode, nil
}

func canonicalPayload(c *dialect.CanonicalError) interface{} {
	if c.Raw != nil {
		return c.Raw
	}
	return map[string]interface{}{"message": c.Message}
}

func isEventStream(contentType string) bool {
	return strings.Contains(contentType, "text/event-stream")
}

func headersToMap(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k := range h {
		m[k] = h.Get(k)
	}
	return m
}

// readSSE reads one upstream SSE body to completion, feeding each "data:"
// event's payload through the dialect's StreamChunkTransform. Event framing
// (lines joined until a blank line, the literal "[DONE]" sentinel) mirrors
// the provider streaming readers' line-scanning idiom, generalized across
// dialects instead of one per provider.
func (p *Pipeline) readSSE(body io.Reader, dlct dialect.Dialect, strict bool, req *wire.Request) ([]*wire.Chunk, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	state := dialect.NewStreamState(uuid.NewString())
	var chunks []*wire.Chunk
	var dataLines []string

	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		if payload == "[DONE]" {
			return nil
		}
		cs, err := dlct.StreamChunkTransform([]byte(payload), state, strict, req)
		if err != nil {
			return fmt.Errorf("pipeline: stream chunk transform: %w", err)
		}
		chunks = append(chunks, cs...)
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: read upstream stream: %w", err)
	}
	return chunks, nil
}

func responseToBody(resp *wire.Response) (map[string]interface{}, error) {
	enc, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode response body: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(enc, &m); err != nil {
		return nil, fmt.Errorf("pipeline: decode response body: %w", err)
	}
	return m, nil
}

func bodyToResponse(body map[string]interface{}, template *wire.Response) (*wire.Response, error) {
	enc, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode hook-overridden body: %w", err)
	}
	var out wire.Response
	if err := json.Unmarshal(enc, &out); err != nil {
		return nil, fmt.Errorf("pipeline: decode hook-overridden body: %w", err)
	}
	if out.Provider == "" && template != nil {
		out.Provider = template.Provider
	}
	return &out, nil
}

func requestToBody(req *wire.Request) (map[string]interface{}, error) {
	enc, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode request body: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(enc, &m); err != nil {
		return nil, fmt.Errorf("pipeline: decode request body: %w", err)
	}
	return m, nil
}

func bodyToRequest(body map[string]interface{}, template *wire.Request) (*wire.Request, error) {
	enc, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode hook-overridden request: %w", err)
	}
	var out wire.Request
	if err := json.Unmarshal(enc, &out); err != nil {
		return nil, fmt.Errorf("pipeline: decode hook-overridden request: %w", err)
	}
	out.Function = template.Function
	out.Metadata = template.Metadata
	return &out, nil
}
