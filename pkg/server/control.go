package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// modelDTO and apiKeyDTO are the control-plane's outward shapes; apiKeyDTO
// in particular never carries storage.AIProviderAPIKey.Secret.
type modelDTO struct {
	ID           string   `json:"id"`
	ProviderTag  string   `json:"provider_tag"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities,omitempty"`
}

type apiKeyDTO struct {
	ID          string `json:"id"`
	ProviderTag string `json:"provider_tag"`
	Label       string `json:"label"`
}

// listAgents handles GET /v1/reactive-agents/agents.
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.pipeline.Storage.GetAgents(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// listSkills handles GET /v1/reactive-agents/skills?agent_id=....
func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeInvalidRequest(w, "agent_id query parameter is required", "agent_id")
		return
	}
	skills, err := s.pipeline.Storage.GetSkills(r.Context(), agentID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"skills": skills})
}

// listModels handles GET /v1/reactive-agents/models.
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.pipeline.Storage.GetModels(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	dtos := make([]modelDTO, len(models))
	for i, m := range models {
		dtos[i] = modelDTO{ID: m.ID, ProviderTag: m.ProviderTag, Name: m.Name, Capabilities: m.Capabilities}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": dtos})
}

// listProviderKeys handles GET /v1/reactive-agents/providers/keys?provider_tag=....
// the redacted key metadata a caller needs to know a key is configured
// without ever seeing AIProviderAPIKey.Secret.
func (s *Server) listProviderKeys(w http.ResponseWriter, r *http.Request) {
	providerTag := r.URL.Query().Get("provider_tag")
	if providerTag == "" {
		writeInvalidRequest(w, "provider_tag query parameter is required", "provider_tag")
		return
	}
	keys, err := s.pipeline.Storage.GetAIProviderAPIKeys(r.Context(), providerTag)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	dtos := make([]apiKeyDTO, len(keys))
	for i, k := range keys {
		dtos[i] = apiKeyDTO{ID: k.ID, ProviderTag: k.ProviderTag, Label: k.Label}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": dtos})
}

// listProviders handles GET /v1/reactive-agents/providers: the dialect tags
// this gateway knows how to address, independent of whether any key is
// configured for them yet.
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": s.pipeline.Dialects.Providers()})
}

// listEvaluationMethods handles GET /v1/reactive-agents/evaluations: the
// registered evaluator.Method names a request's evaluation_methods may name.
func (s *Server) listEvaluationMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"methods": s.pipeline.Evaluators.Names()})
}

// listEvaluationRuns handles GET /v1/reactive-agents/evaluation-runs?dataset_id=....
func (s *Server) listEvaluationRuns(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset_id")
	if datasetID == "" {
		writeInvalidRequest(w, "dataset_id query parameter is required", "dataset_id")
		return
	}
	runs, err := s.pipeline.Storage.GetEvaluationRuns(r.Context(), datasetID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"evaluation_runs": runs})
}

// listDatasets handles GET /v1/reactive-agents/datasets.
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.pipeline.Storage.GetDatasets(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets})
}

// listLogs handles GET /v1/reactive-agents/logs?dataset_id=....
func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset_id")
	if datasetID == "" {
		writeInvalidRequest(w, "dataset_id query parameter is required", "dataset_id")
		return
	}
	logs, err := s.pipeline.Storage.GetDatasetLogs(r.Context(), datasetID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// listEvents handles GET /v1/reactive-agents/events?request_id=...: the
// per-method evaluation outputs recorded for one already-served request.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		writeInvalidRequest(w, "request_id query parameter is required", "request_id")
		return
	}
	events, err := s.pipeline.Storage.GetLogOutputs(r.Context(), requestID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// filesNotImplemented handles /v1/files: no dialect wires wire.FunctionUploadFile
// to an upstream parameter table yet, and storage.Connector has no file
// persistence methods - file handling needs a binary multipart path this
// gateway's JSON-native wire.Request doesn't model, so the route is exposed
// but declines rather than silently mishandling uploads.
func (s *Server) filesNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, pipelineErrorResponse(
		"file upload/retrieval is not implemented by this gateway",
		"not_implemented_error",
	))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeInvalidRequest(w http.ResponseWriter, message, param string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
			"param":   param,
		},
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	slog.Default().Error("server: control-plane request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, pipelineErrorResponse("an internal error occurred", "internal_error"))
}

func pipelineErrorResponse(message, errType string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    errType,
		},
	}
}
