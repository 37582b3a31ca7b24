package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMalformedResponse is returned for payloads carrying neither results
	// nor an error message.
	ErrMalformedResponse = errors.New("malformed response: no results and no error")
)

// APIError is an error payload reported by the catalog service.
type APIError struct {
	Class   Class
	Message string
	Target  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("catalog %s error: %s", e.Class, e.Message)
}

// Throttled reports whether the error is a rate-limit rejection.
func (e *APIError) Throttled() bool {
	return e.Class == ClassThrottled
}
