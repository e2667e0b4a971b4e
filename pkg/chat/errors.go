package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLine is returned when the model produced no speakable text.
	ErrEmptyLine = errors.New("chat: empty line")

	// ErrNotReady is returned by Health when the model is not loaded.
	ErrNotReady = errors.New("chat: model not loaded")
)

// APIError represents an error response from the generation server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the server.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("chat: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
