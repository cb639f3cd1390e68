package models

import (
	"encoding/json"
	"net/http"
)

// ProblemType identifies a class of error. Each type has a fixed title and status.
type ProblemType string

const problemBase = "https://smartirrigation.dev/problems/"

const (
	ProblemTypeValidation                ProblemType = problemBase + "validation-error"
	ProblemTypeUnauthorized              ProblemType = problemBase + "unauthorized"
	ProblemTypeTLSRequired               ProblemType = problemBase + "tls-required"
	ProblemTypeNotFound                  ProblemType = problemBase + "not-found"
	ProblemTypeUnsupportedMediaType      ProblemType = problemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests           ProblemType = problemBase + "too-many-requests"
	ProblemTypeInternal                  ProblemType = problemBase + "internal-error"
	ProblemTypeUnavailable               ProblemType = problemBase + "service-unavailable"
	ProblemTypeRecommendationUnavailable ProblemType = problemBase + "recommendation-unavailable"
)

var problemTypes = map[ProblemType]struct {
	title  string
	status int
}{
	ProblemTypeValidation:                {"Validation error", http.StatusBadRequest},
	ProblemTypeUnauthorized:              {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeTLSRequired:               {"TLS required", http.StatusForbidden},
	ProblemTypeNotFound:                  {"Not found", http.StatusNotFound},
	ProblemTypeUnsupportedMediaType:      {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeTooManyRequests:           {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:                  {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUnavailable:               {"Service unavailable", http.StatusServiceUnavailable},
	ProblemTypeRecommendationUnavailable: {"Recommendation unavailable", http.StatusServiceUnavailable},
}

// Title returns the human-readable summary of the type.
func (t ProblemType) Title() string {
	if p, ok := problemTypes[t]; ok {
		return p.title
	}
	return problemTypes[ProblemTypeInternal].title
}

// Status returns the HTTP status served with the type. Unknown types are 500.
func (t ProblemType) Status() int {
	if p, ok := problemTypes[t]; ok {
		return p.status
	}
	return http.StatusInternalServerError
}

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     ProblemType  `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation error on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewProblem creates a Problem of type t. traceID is the request id echoed to the client.
func NewProblem(t ProblemType, traceID, detail string) *Problem {
	return &Problem{
		Type:    t,
		Title:   t.Title(),
		Status:  t.Status(),
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewValidationProblem creates a 400 problem listing the offending fields.
func NewValidationProblem(traceID, detail string, errs []FieldError) *Problem {
	return NewProblem(ProblemTypeValidation, traceID, detail).WithErrors(errs)
}

// NewRecommendationUnavailable creates the 503 served when a recommendation
// cannot be produced, for example because its weather inputs are missing.
func NewRecommendationUnavailable(traceID, reason string) *Problem {
	return NewProblem(ProblemTypeRecommendationUnavailable, traceID, "recommendation unavailable: "+reason)
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors sets the field errors.
func (p *Problem) WithErrors(errs []FieldError) *Problem {
	p.Errors = errs
	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
