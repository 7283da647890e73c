// Package apperror defines the typed error taxonomy used across the API.
// Repository and service layers translate infrastructure failures into these
// errors; the central HTTP error handler converts them into the client
// envelope without ever exposing internal detail.
package apperror

import (
	"errors"
	"net/http"
	"time"
)

// AppError is the single error type that crosses component boundaries.
// Message is safe to show to clients; Internal is for logs only.
type AppError struct {
	Message     string
	Internal    string
	Status      int
	Operational bool
	Timestamp   time.Time
	RequestID   string
}

func (e *AppError) Error() string {
	if e.Internal != "" {
		return e.Message + ": " + e.Internal
	}
	return e.Message
}

// WithRequestID returns a copy of the error carrying the given request id.
func (e *AppError) WithRequestID(rid string) *AppError {
	cp := *e
	cp.RequestID = rid
	return &cp
}

// ClientResponse is the envelope returned to API callers. It deliberately
// carries no internal messages, stack traces, or field values.
type ClientResponse struct {
	Error ClientError `json:"error"`
}

type ClientError struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ToClientResponse builds the outward-facing error envelope.
func (e *AppError) ToClientResponse() ClientResponse {
	return ClientResponse{
		Error: ClientError{
			Message:   e.Message,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		},
	}
}

func newError(message, internal string, status int, operational bool) *AppError {
	return &AppError{
		Message:     message,
		Internal:    internal,
		Status:      status,
		Operational: operational,
		Timestamp:   time.Now().UTC(),
	}
}

// Unauthenticated covers missing or invalid API keys. Ownership violations
// reuse the same status so a caller probing with a valid key cannot tell
// "bad key" apart from "someone else's record".
func Unauthenticated(message, internal string) *AppError {
	return newError(message, internal, http.StatusUnauthorized, true)
}

// Unauthorized covers per-provider ownership violations.
func Unauthorized(message, internal string) *AppError {
	return newError(message, internal, http.StatusUnauthorized, true)
}

// BadRequest covers validation failures and unknown referenced records.
func BadRequest(message, internal string) *AppError {
	return newError(message, internal, http.StatusBadRequest, true)
}

// Conflict covers uniqueness violations.
func Conflict(message, internal string) *AppError {
	return newError(message, internal, http.StatusConflict, true)
}

// NotFound covers missing entities.
func NotFound(message, internal string) *AppError {
	return newError(message, internal, http.StatusNotFound, true)
}

// GatewayTimeout covers requests cut off by the server-side deadline.
func GatewayTimeout(message, internal string) *AppError {
	return newError(message, internal, http.StatusGatewayTimeout, true)
}

// Internal covers everything else. Marked non-operational so the error
// handler logs it with full internal detail at error level.
func Internal(message, internal string) *AppError {
	return newError(message, internal, http.StatusInternalServerError, false)
}

// From extracts an *AppError from err, wrapping unknown errors as Internal.
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("An unexpected error occurred", err.Error())
}

// StatusOf returns the HTTP status an error maps to.
func StatusOf(err error) int {
	return From(err).Status
}
