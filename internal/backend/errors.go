package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable covers network failures, 5xx responses and an open circuit. Callers may retry.
	ErrUnavailable = errors.New("backend unavailable")
	ErrNotFound    = errors.New("not found")
	// ErrMalformedResponse means the backend answered with a body we could not decode.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError is a non-2xx (or success=false) answer from the backend. Message is the server's
// own wording and is safe to show to the shopper.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

func (e *APIError) ServerMessage() string {
	return e.Message
}
