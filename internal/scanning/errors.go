package scanning

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable is returned when a provider has no credentials
	// or endpoint configured. It triggers fallback and is not a failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrResponseParse is returned when model output is still not valid
	// JSON after sanitizing
	ErrResponseParse = errors.New("response parse failed")
	// ErrNoText is returned when no text could be read from an image
	ErrNoText = errors.New("no text found")
	// ErrUnsupportedFormat is returned for files that cannot be turned into
	// an image
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// RequestError is a failed call to a provider: a transport error or a non
// success response.
type RequestError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
