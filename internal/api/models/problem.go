package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response served as application/problem+json.
// Success and Error mirror the envelope quote clients already read.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Field error codes.
const (
	CodeRequired   = "REQUIRED"
	CodeOutOfRange = "OUT_OF_RANGE"
	CodeInvalid    = "INVALID"
)

// ProblemType constants for standard error types.
const (
	ProblemTypeValidation       = "https://api.simbok.id/problems/validation-error"
	ProblemTypeForbidden        = "https://api.simbok.id/problems/forbidden"
	ProblemTypeNotFound         = "https://api.simbok.id/problems/not-found"
	ProblemTypeUnsupportedMedia = "https://api.simbok.id/problems/unsupported-media-type"
	ProblemTypeUnprocessable    = "https://api.simbok.id/problems/unprocessable"
	ProblemTypeTooManyRequests  = "https://api.simbok.id/problems/too-many-requests"
	ProblemTypeInternal         = "https://api.simbok.id/problems/internal-error"
	ProblemTypeBadGateway       = "https://api.simbok.id/problems/bad-gateway"
	ProblemTypeUnavailable      = "https://api.simbok.id/problems/service-unavailable"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	p.Success = false
	p.Error = p.Detail
	if p.Error == "" {
		p.Error = p.Title
	}

	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newWithDetail(problemType, title string, status int, traceID, detail string) *Problem {
	return NewProblem(problemType, title, status, traceID).WithDetail(detail)
}

// NewBadRequest creates a 400 Bad Request problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return newWithDetail(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail).
		WithErrors(errors)
}

// NewForbidden creates a 403 Forbidden problem.
func NewForbidden(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, traceID, detail)
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewUnsupportedMediaType creates a 415 Unsupported Media Type problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType, traceID, detail)
}

// NewUnprocessable creates a 422 problem for well-formed requests that cannot be priced.
func NewUnprocessable(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnprocessable, "Unprocessable request", http.StatusUnprocessableEntity, traceID, detail)
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}

// NewBadGateway creates a 502 problem for failed upstream calls.
func NewBadGateway(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeBadGateway, "Bad gateway", http.StatusBadGateway, traceID, detail)
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID, detail)
}
