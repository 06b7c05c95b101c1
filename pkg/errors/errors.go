// Package errors defines the structured error types for the careplane
// service. Every denial carries a machine-readable code, an HTTP status and
// itemized reasons; security-relevant failures are never collapsed into a
// generic message.
package errors

import (
	"fmt"
	"net/http"

	"github.com/careplane/careplane/pkg/constants"
)

// ================================================================================
// Error Interface
// ================================================================================

// AppError is the structured error carried through the service.
type AppError interface {
	error

	// Code returns the machine-readable error code.
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status the error maps to.
	HTTPStatus() int

	// Reasons returns the itemized reasons behind the error. Always non-empty
	// for isolation and threat denials.
	Reasons() []string

	// Unwrap returns the underlying cause for error-chain support.
	Unwrap() error

	// WithCause attaches a cause error.
	WithCause(cause error) AppError

	// WithReason appends an itemized reason.
	WithReason(reason string) AppError

	// WithMetadata attaches context metadata.
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all attached metadata.
	Metadata() map[string]interface{}
}

type baseError struct {
	code       constants.ErrorCode
	httpStatus int
	message    string
	reasons    []string
	cause      error
	metadata   map[string]interface{}
}

func (e *baseError) Error() string {
	if len(e.reasons) > 0 {
		return fmt.Sprintf("%s: %v", e.message, e.reasons)
	}
	return e.message
}

func (e *baseError) Code() constants.ErrorCode { return e.code }
func (e *baseError) HTTPStatus() int           { return e.httpStatus }
func (e *baseError) Reasons() []string         { return e.reasons }
func (e *baseError) Unwrap() error             { return e.cause }

func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

func (e *baseError) WithReason(reason string) AppError {
	e.reasons = append(e.reasons, reason)
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} { return e.metadata }

// New creates an AppError with the given code, HTTP status and message.
func New(code constants.ErrorCode, httpStatus int, message string) AppError {
	return &baseError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
		metadata:   make(map[string]interface{}),
	}
}

// ================================================================================
// Taxonomy Constructors
// ================================================================================

// ErrResolutionFailure means no tenant candidate on the request resolved to a
// known tenant. Fail-closed: the request is denied.
func ErrResolutionFailure(detail string) AppError {
	return New(constants.ErrCodeResolutionFailure, http.StatusBadRequest,
		"no tenant context could be resolved for this request").
		WithReason(detail)
}

// ErrLookupFailure means the tenant directory or an assessment provider was
// unreachable. Fail-closed: the request is denied, never downgraded.
func ErrLookupFailure(collaborator string, cause error) AppError {
	return New(constants.ErrCodeLookupFailure, http.StatusInternalServerError,
		fmt.Sprintf("%s lookup failed", collaborator)).
		WithCause(cause).
		WithMetadata("collaborator", collaborator)
}

// ErrIsolationViolation carries the full itemized violation list from an
// isolation decision. The itemization is an audit requirement.
func ErrIsolationViolation(violations []string) AppError {
	err := New(constants.ErrCodeIsolationViolation, http.StatusForbidden,
		"tenant isolation violation")
	for _, v := range violations {
		err = err.WithReason(v)
	}
	return err
}

// ErrThreatDetected means a CRITICAL threat pattern matched the request body.
func ErrThreatDetected(violationTypes []string) AppError {
	err := New(constants.ErrCodeThreatDetected, http.StatusForbidden,
		"request blocked by threat pattern scanner")
	for _, t := range violationTypes {
		err = err.WithReason(t)
	}
	return err
}

// ErrStructuralViolation flags a size or depth bound violation on a request
// body. Recorded for audit; non-blocking by default.
func ErrStructuralViolation(detail string) AppError {
	return New(constants.ErrCodeStructural, http.StatusBadRequest,
		"request body exceeds structural bounds").
		WithReason(detail)
}

// ErrAggregationPartialFailure means one or more jurisdiction assessment
// calls failed or timed out. No unified score is produced; the succeeded
// jurisdictions may be exposed explicitly labeled partial.
func ErrAggregationPartialFailure(failed []string, cause error) AppError {
	err := New(constants.ErrCodeAggregationPartial, http.StatusBadGateway,
		"compliance aggregation incomplete").
		WithCause(cause).
		WithMetadata("failed_jurisdictions", failed)
	for _, j := range failed {
		err = err.WithReason(fmt.Sprintf("jurisdiction %s assessment failed", j))
	}
	return err
}

// ErrUnauthenticated means no principal could be established for the request.
func ErrUnauthenticated(detail string) AppError {
	return New(constants.ErrCodeUnauthenticated, http.StatusUnauthorized,
		"no authenticated principal").
		WithReason(detail)
}

// ErrRateLimited means the tenant exhausted its assistant request budget.
func ErrRateLimited(scope string, limit int64) AppError {
	return New(constants.ErrCodeRateLimited, http.StatusTooManyRequests,
		"rate limit exceeded").
		WithMetadata("scope", scope).
		WithMetadata("limit", limit)
}

// ErrInvalidRequest flags a malformed request.
func ErrInvalidRequest(detail string) AppError {
	return New(constants.ErrCodeInvalidRequest, http.StatusBadRequest,
		"invalid request").
		WithReason(detail)
}

// ErrNotFound flags a missing entity.
func ErrNotFound(entity, id string) AppError {
	return New(constants.ErrCodeNotFound, http.StatusNotFound,
		fmt.Sprintf("%s not found: %s", entity, id)).
		WithMetadata(entity+"_id", id)
}

// ErrInternal wraps an unexpected infrastructure failure.
func ErrInternal(message string, cause error) AppError {
	return New(constants.ErrCodeInternal, http.StatusInternalServerError, message).
		WithCause(cause)
}

// ================================================================================
// Predicates
// ================================================================================

// AsAppError attempts to cast an error to AppError.
func AsAppError(err error) (AppError, bool) {
	appErr, ok := err.(AppError)
	return appErr, ok
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code constants.ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code() == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, constants.ErrCodeNotFound)
}

// IsTransient reports whether err may succeed on retry. Validation failures
// are deterministic and never transient; only collaborator lookup failures
// qualify.
func IsTransient(err error) bool {
	return IsCode(err, constants.ErrCodeLookupFailure)
}

// ================================================================================
// Response Shape
// ================================================================================

// ErrorResponse is the JSON body returned on every denial. Reasons enumerate
// violation types, never resource content.
type ErrorResponse struct {
	Error    string                 `json:"error"`
	Message  string                 `json:"message"`
	Reasons  []string               `json:"reasons,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error to the wire error shape.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:    string(appErr.Code()),
			Message:  appErr.Error(),
			Reasons:  appErr.Reasons(),
			Metadata: appErr.Metadata(),
		}
	}
	return &ErrorResponse{
		Error:   string(constants.ErrCodeInternal),
		Message: "an unexpected error occurred",
	}
}
