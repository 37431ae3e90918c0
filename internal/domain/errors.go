package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent failure conditions shared across layers.
var (
	// Viewer lifecycle errors
	ErrAlreadyMounted = errors.New("viewer already mounted")
	ErrNotMounted     = errors.New("viewer not mounted")
	ErrUnmounted      = errors.New("viewer already unmounted")

	// Session errors
	ErrSessionNotFound = errors.New("view session not found")

	// Publish errors
	ErrSourceNotFound = errors.New("publish source not found")

	// Config errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// HTTPStatusError is returned when the collage request got a response whose
// status indicates failure.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Failed to load file: %d", e.StatusCode)
}

// TransportError is returned when the collage request could not complete,
// either because no response arrived or the body stream broke.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport error"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FetchErrorMessage converts a fetch failure into the message shown to the user.
func FetchErrorMessage(err error) string {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Error()
	}
	return err.Error()
}
