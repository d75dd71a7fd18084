// Package apierr provides a standardized error format for the HTTP API
// boundary.
//
// AppError is used only by the HTTP handlers, for the errors they
// answer a request with (bad input, unknown job or pipeline, conflict,
// full queue, store failure). Stage, plugin, and fatal-worker errors
// raised while a job runs stay inside the engine as plain wrapped errors
// and are logged, never rendered to an HTTP caller directly — they
// surface only indirectly, as a job's "failed" status and its
// result.error string.
package apierr

import (
	"fmt"
	"net/http"
)

// AppError is a structured error with an HTTP status and a machine
// readable code, rendered by the API layer as JSON.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorResponse is the JSON shape written to the client.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodePluginNotFound   = "PLUGIN_NOT_FOUND"
	CodePipelineNotFound = "PIPELINE_NOT_FOUND"
	CodeJobNotFound      = "JOB_NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeQueueFull        = "QUEUE_FULL"
)

func statusFor(code string) int {
	switch code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodePluginNotFound, CodePipelineNotFound, CodeJobNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeQueueFull:
		return http.StatusServiceUnavailable
	case CodeInternal, CodeDatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusFor(code)}
}

func NewWithDetails(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, StatusCode: statusFor(code)}
}

func Wrap(code, message string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewWithDetails(code, message, details)
}

func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message, Code: e.Code, Details: e.Details}
}

func BadRequest(message string) *AppError       { return New(CodeBadRequest, message) }
func ValidationFailed(message string) *AppError { return New(CodeValidationFailed, message) }
func Conflict(message string) *AppError         { return New(CodeConflict, message) }
func Internal(message string) *AppError         { return New(CodeInternal, message) }

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func PluginNotFound(id string) *AppError {
	return New(CodePluginNotFound, fmt.Sprintf("plugin %q not found", id))
}

func PipelineNotFound(id string) *AppError {
	return New(CodePipelineNotFound, fmt.Sprintf("pipeline %q not found", id))
}

func JobNotFound(id int64) *AppError {
	return New(CodeJobNotFound, fmt.Sprintf("job %d not found", id))
}

func DatabaseError(err error) *AppError {
	return Wrap(CodeDatabaseError, "database operation failed", err)
}

func QueueFull() *AppError {
	return New(CodeQueueFull, "task queue is at capacity, try again later")
}
