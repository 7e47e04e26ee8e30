package errors

import (
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx answer from the persistence API.
type HTTPError struct {
	StatusCode int
	Message    string

	// Endpoint is "METHOD /path" of the failed request.
	Endpoint string
}

func (e *HTTPError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Retryable reports whether the server may answer differently later:
// rate limiting and server-side failures.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ValidationError is a drop payload or document field that failed
// validation.
type ValidationError struct {
	Field string

	// Value is the offending input, when it is short enough to show.
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "":
		return "invalid payload: " + e.Message
	case e.Value != "":
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
	default:
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
}
