package pipeline

import (
	"errors"
	"net/http"

	"github.com/relaymind/relaymind/pkg/classifier"
	"github.com/relaymind/relaymind/pkg/hooks"
)

// ErrorBody is the outward error object every failed response carries.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// ErrorResponse is the full JSON envelope a failed request is serialized
// as: the error object plus the diagnostic companion every response
// carries alongside it.
type ErrorResponse struct {
	Error        ErrorBody              `json:"error"`
	ErrorDetails map[string]interface{} `json:"error_details,omitempty"`
}

// suggestedActions maps a classifier family to the one-line remediation
// hint error_details.suggested_action carries.
var suggestedActions = map[classifier.Family]string{
	classifier.FamilyAuth:        "verify the configured provider API key and retry",
	classifier.FamilyRateLimit:   "back off and retry after the provider's rate limit window",
	classifier.FamilyNotFound:    "verify the requested model or resource exists for this provider",
	classifier.FamilyValidation:  "correct the request parameters and retry",
	classifier.FamilyPermission:  "verify the API key has access to the requested resource",
	classifier.FamilyTimeout:     "retry the request; consider a shorter prompt or a faster model",
	classifier.FamilyUpstream:    "retry later or configure a fallback target",
	classifier.FamilyUnavailable: "retry later or configure a fallback target",
	classifier.FamilyClientOther: "correct the request and retry",
	classifier.FamilyServerOther: "retry later; the issue is on the provider side",
}

// errorTypes maps a classifier family to the OpenAI-shaped error.type
// string the response body's error object carries.
var errorTypes = map[classifier.Family]string{
	classifier.FamilyAuth:        "authentication_error",
	classifier.FamilyRateLimit:   "rate_limit_error",
	classifier.FamilyNotFound:    "invalid_request_error",
	classifier.FamilyValidation:  "invalid_request_error",
	classifier.FamilyPermission:  "permission_error",
	classifier.FamilyTimeout:     "timeout_error",
	classifier.FamilyUpstream:    "api_error",
	classifier.FamilyUnavailable: "api_error",
	classifier.FamilyClientOther: "invalid_request_error",
	classifier.FamilyServerOther: "api_error",
}

// StatusAndResponse converts any error Pipeline.Serve can return into the
// outward HTTP status and JSON envelope the gateway's HTTP surface sends
// back to the client. Mirrors the teacher's pkg/proxy/errors.go HandleError
// pattern match, generalized from the teacher's provider-specific error
// types (AuthError, RateLimitError, ...) to this gateway's own taxonomy
// (DeniedError, AgentNotFoundError, SkillNotFoundError, classifiedError).
func StatusAndResponse(err error) (int, ErrorResponse) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, ErrorResponse{
			Error: ErrorBody{Message: validation.Message, Type: "invalid_request_error"},
			ErrorDetails: map[string]interface{}{
				"classification":   "invalid_request",
				"suggested_action": "correct the request body and retry",
			},
		}
	}

	var denied *DeniedError
	if errors.As(err, &denied) {
		return hooks.DeniedStatus, ErrorResponse{
			Error: ErrorBody{Message: denied.Reason, Type: "hook_denied_error", Code: "hook_denied"},
			ErrorDetails: map[string]interface{}{
				"classification":   "hook_denied",
				"suggested_action": "adjust the request to satisfy the configured hook and retry",
			},
		}
	}

	var agentNotFound *AgentNotFoundError
	if errors.As(err, &agentNotFound) {
		return http.StatusNotFound, ErrorResponse{
			Error: ErrorBody{Message: err.Error(), Type: "invalid_request_error", Param: "agent"},
			ErrorDetails: map[string]interface{}{
				"classification":   "not_found",
				"suggested_action": "verify the agent name and retry",
			},
		}
	}

	var skillNotFound *SkillNotFoundError
	if errors.As(err, &skillNotFound) {
		return http.StatusNotFound, ErrorResponse{
			Error: ErrorBody{Message: err.Error(), Type: "invalid_request_error", Param: "skill"},
			ErrorDetails: map[string]interface{}{
				"classification":   "not_found",
				"suggested_action": "verify the skill name and retry",
			},
		}
	}

	var classified *classifiedError
	if errors.As(err, &classified) {
		result := classified.result
		family, _ := result.ErrorDetails["family"].(string)
		f := classifier.Family(family)
		details := result.ErrorDetails
		if details == nil {
			details = map[string]interface{}{}
		}
		if action, ok := suggestedActions[f]; ok {
			details["suggested_action"] = action
		}
		return result.Status, ErrorResponse{
			Error: ErrorBody{Message: result.Message, Type: errorTypeFor(f)},
			ErrorDetails: details,
		}
	}

	var withStatus *statusError
	if errors.As(err, &withStatus) {
		status := withStatus.status
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, ErrorResponse{
			Error: ErrorBody{Message: "the upstream request could not be completed", Type: "api_error"},
			ErrorDetails: map[string]interface{}{
				"original_error":   withStatus.cause.Error(),
				"classification":   "upstream",
				"suggested_action": "retry later or configure a fallback target",
			},
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: ErrorBody{Message: "an internal error occurred", Type: "internal_error"},
		ErrorDetails: map[string]interface{}{
			"original_error":   err.Error(),
			"classification":   "internal",
			"suggested_action": "retry; contact the operator if the problem persists",
		},
	}
}

func errorTypeFor(f classifier.Family) string {
	if t, ok := errorTypes[f]; ok {
		return t
	}
	return "api_error"
}
