package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
)

// APIError is returned for transport failures and non-2xx responses.
// errors.Is matches it against the domain sentinels, so callers can test for
// domain.ErrNotFound without knowing about HTTP.
type APIError struct {
	StatusCode int // 0 for transport failures
	Code       string
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error { return e.cause }

// Is maps HTTP statuses onto domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrValidation:
		return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
	case domain.ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

func newAPIError(status int, body []byte) *APIError {
	var resp api.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		return &APIError{StatusCode: status, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	msg := string(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
