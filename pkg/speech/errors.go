package speech

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned when Speak or Synthesize is called with no text.
var ErrEmptyText = errors.New("speech: text required")

// APIError is an error response from the speech server.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("speech: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports a 5xx response, including a model still loading.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
