package domain

import (
	"fmt"
	"net/http"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrUpstream is a non-2xx answer from the society backend, normalised to
// {message, status, data}. Message is the backend's own message when it
// sends one, otherwise "HTTP Error: <status> <text>".
type ErrUpstream struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
}

func (e *ErrUpstream) Error() string {
	return e.Message
}

// NewErrUpstream builds the fallback message for a bare status code.
func NewErrUpstream(status int, data any) *ErrUpstream {
	return &ErrUpstream{
		Message: fmt.Sprintf("HTTP Error: %d %s", status, http.StatusText(status)),
		Status:  status,
		Data:    data,
	}
}

// ErrDecode indicates a backend response failed schema validation.
type ErrDecode struct {
	Schema string
	Reason string
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Schema, e.Reason)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input). Fields carries
// one message per failing field when more than one field is wrong.
type ErrValidation struct {
	Field   string
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrPrecondition indicates a business rule refused the command before any
// backend call was made.
type ErrPrecondition struct {
	Message string
}

func (e *ErrPrecondition) Error() string {
	return e.Message
}

// ErrInFlight indicates the same command is already pending and this call
// was dropped.
type ErrInFlight struct {
	Operation string
}

func (e *ErrInFlight) Error() string {
	return fmt.Sprintf("%s already in progress", e.Operation)
}

// ErrForbidden indicates the user lacks permission for the operation.
// Message, when set, is shown to the user verbatim.
type ErrForbidden struct {
	Action  string
	Message string
}

func (e *ErrForbidden) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates the backend refused a write because of existing state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
