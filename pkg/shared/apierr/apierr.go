// Package apierr defines the small set of sentinel error codes the opx
// control plane returns at its boundaries (HTTP responses, automation
// handler results), separate from pkg/shared/errors which wraps internal
// causes. Error bodies never suggest a remedial action, only state the
// problem and the violated rule.
package apierr

import "net/http"

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeValidationError       Code = "VALIDATION_ERROR"
	CodeInvalidIncidentID     Code = "INVALID_INCIDENT_ID"
	CodeInvalidAuthority      Code = "INVALID_AUTHORITY"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeMissingMetadata       Code = "MISSING_METADATA"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInsufficientAuthority Code = "INSUFFICIENT_AUTHORITY"
	CodeApprovalRequired      Code = "APPROVAL_REQUIRED"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeIdempotencyConflict   Code = "IDEMPOTENCY_CONFLICT"
	CodeRateLimitExceeded     Code = "RATE_LIMIT_EXCEEDED"
	CodeKillSwitchActive      Code = "KILL_SWITCH_ACTIVE"
	CodeInternalError         Code = "INTERNAL_ERROR"

	// Promotion gate rejection codes (spec.md §3 PromotionResult.rejectionCode).
	CodeConfidenceTooLow        Code = "CONFIDENCE_TOO_LOW"
	CodeInsufficientDetections  Code = "INSUFFICIENT_DETECTIONS"
	CodeActiveIncidentExists    Code = "ACTIVE_INCIDENT_EXISTS"
	CodeEvidenceNotFound        Code = "EVIDENCE_NOT_FOUND"
	CodeServiceNotAllowed       Code = "SERVICE_NOT_ALLOWED"
	CodeGateInternalError       Code = "GATE_INTERNAL_ERROR"
)

// CodedError is an error carrying a stable Code plus a human-readable
// message and optional structured details, the shape every opx HTTP
// response's error body uses.
type CodedError struct {
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *CodedError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a CodedError with no details.
func New(code Code, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// WithDetails builds a CodedError carrying structured details.
func WithDetails(code Code, message string, details map[string]interface{}) *CodedError {
	return &CodedError{Code: code, Message: message, Details: details}
}

// HTTPStatus maps a Code to the status code spec.md §6 assigns it.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidationError, CodeInvalidIncidentID, CodeInvalidAuthority, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInsufficientAuthority, CodeApprovalRequired:
		return http.StatusForbidden
	case CodeNotFound, CodeEvidenceNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIdempotencyConflict, CodeActiveIncidentExists:
		return http.StatusConflict
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeKillSwitchActive:
		return http.StatusServiceUnavailable
	case CodeMissingMetadata:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsCoded extracts a *CodedError from err, or wraps it as CodeInternalError
// if it isn't one already.
func AsCoded(err error) *CodedError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CodedError); ok {
		return ce
	}
	return New(CodeInternalError, err.Error())
}
