package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/relaymind/relaymind/pkg/pipeline"
	"github.com/relaymind/relaymind/pkg/proxy"
	"github.com/relaymind/relaymind/pkg/wire"
)

// ConfigHeader carries the JSON-encoded ConfigEnvelope on every inference
// route, mirroring spec.md's generic control-header placeholder under this
// gateway's own name.
const ConfigHeader = "X-Relaymind-Config"

// inferenceRoute binds one HTTP path to the canonical function it drives.
// streamVariant is the function name used when the request body sets
// "stream": true; it is the zero value for functions with no streaming
// variant (the dialect layer keys the same endpoint off either name, so
// this only matters for Request.Validate and the optimizer's semantic
// routing check).
type inferenceRoute struct {
	path          string
	function      wire.FunctionName
	streamVariant wire.FunctionName
}

var inferenceRoutes = []inferenceRoute{
	{"/v1/chat/completions", wire.FunctionChatComplete, wire.FunctionStreamChatComplete},
	{"/v1/completions", wire.FunctionComplete, wire.FunctionStreamComplete},
	{"/v1/responses", wire.FunctionCreateModelResponse, ""},
	{"/v1/embeddings", wire.FunctionEmbed, ""},
	{"/v1/images/generations", wire.FunctionGenerateImage, ""},
	{"/v1/moderations", wire.FunctionModerate, ""},
	{"/v1/audio/speech", wire.FunctionCreateSpeech, ""},
	{"/v1/audio/transcriptions", wire.FunctionCreateTranscription, ""},
	{"/v1/audio/translations", wire.FunctionCreateTranslation, ""},
}

// handleInference returns the HTTP handler for one inferenceRoute: decode
// body into wire.Request, parse the control header into a RequestConfig,
// resolve the agent/skill the request addresses, run the pipeline, and
// multiplex the result onto a plain JSON body or an SSE stream depending on
// what the client asked for. Grounded on the teacher's
// pkg/proxy/handlers/chat.go request-conversion shape, generalized from one
// OpenAI-specific struct to wire.Request across every function variant.
func (s *Server) handleInference(route inferenceRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeInvalidRequest(w, "method not allowed", "")
			w.Header().Set("Allow", http.MethodPost)
			return
		}

		limited := io.LimitReader(r.Body, proxy.MaxRequestBodySize+1)
		raw, err := io.ReadAll(limited)
		if err != nil {
			writeInvalidRequest(w, "failed to read request body", "")
			return
		}
		if len(raw) > proxy.MaxRequestBodySize {
			writeInvalidRequest(w, fmt.Sprintf("request body exceeds maximum size of %d bytes", proxy.MaxRequestBodySize), "")
			return
		}

		var req wire.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			writeInvalidRequest(w, "request body is not valid JSON", "")
			return
		}

		req.Function = route.function
		if req.Stream && route.streamVariant != "" {
			req.Function = route.streamVariant
		}

		envelope, err := s.parseConfigEnvelope(r)
		if err != nil {
			writeInvalidRequest(w, err.Error(), "")
			return
		}

		agentName, skillName := envelope.agentAndSkill()
		if agentName == "" || skillName == "" {
			writeInvalidRequest(w, "config envelope metadata must set \"agent\" and \"skill\"", "metadata")
			return
		}
		req.Metadata = envelope.Metadata

		reqConfig, err := envelope.toRequestConfig(s.config)
		if err != nil {
			writeInvalidRequest(w, err.Error(), "")
			return
		}

		in := pipeline.Inbound{
			Request:    &req,
			AgentName:  agentName,
			SkillName:  skillName,
			Config:     reqConfig,
			WantStream: req.Stream,
		}

		result, err := s.pipeline.Serve(r.Context(), in)
		if err != nil {
			s.writeServeError(w, err)
			return
		}

		if in.WantStream {
			s.writeStream(w, result)
			return
		}
		writeJSON(w, http.StatusOK, result.Response)
	}
}

// parseConfigEnvelope reads and decodes the control header. A missing
// header is itself an invalid request: every inference route requires a
// target list, and there is nowhere else for the caller to supply one.
func (s *Server) parseConfigEnvelope(r *http.Request) (ConfigEnvelope, error) {
	raw := r.Header.Get(ConfigHeader)
	if raw == "" {
		return ConfigEnvelope{}, fmt.Errorf("missing %s control header", ConfigHeader)
	}
	var envelope ConfigEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return ConfigEnvelope{}, fmt.Errorf("%s header is not valid JSON: %w", ConfigHeader, err)
	}
	return envelope, nil
}

// writeServeError renders a Pipeline.Serve error as the spec's
// error/error_details envelope, picking the status pipeline.StatusAndResponse
// derives from the error's concrete type.
func (s *Server) writeServeError(w http.ResponseWriter, err error) {
	status, body := pipeline.StatusAndResponse(err)
	writeJSON(w, status, body)
}

// writeStream renders an SSE response: one "event: message" frame per
// normalized chunk, terminated by the literal "[DONE]" sentinel every
// OpenAI-compatible streaming client expects.
func (s *Server) writeStream(w http.ResponseWriter, result *pipeline.ServeResult) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	chunks := result.Chunks
	if chunks == nil {
		chunks = wire.SynthesizeChunks(result.Response, result.Record.RequestID)
	}
	for _, chunk := range chunks {
		data, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
