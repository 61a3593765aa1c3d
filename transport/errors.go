package transport

import (
	"errors"
	"fmt"
)

var (
	ErrExhausted        = errors.New("all transport attempts failed")
	ErrParse            = errors.New("unexpected response shape")
	ErrRelayUnavailable = errors.New("relay fetcher unavailable")
	ErrJSONPNoCallback  = errors.New("jsonp response did not invoke the callback")
	ErrMethodNotAllowed = errors.New("method not supported by descriptor")
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// TransportError is returned once the whole fallback chain has been exhausted.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrExhausted, e.Err}
}
