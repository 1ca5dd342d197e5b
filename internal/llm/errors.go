package llm

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable is the class of all failed generation calls:
// non-2xx responses, network errors, timeouts and empty completions.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrNotConfigured is the class of errors raised when no provider credential exists.
var ErrNotConfigured = errors.New("API key not configured")

// UpstreamError describes a failed call to the provider.
type UpstreamError struct {
	Provider   Provider
	StatusCode int // zero when no response was received
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is places every UpstreamError in the ErrUpstreamUnavailable class.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// ConfigurationError indicates the process cannot reach any provider.
type ConfigurationError struct {
	Provider Provider
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return ErrNotConfigured.Error()
	}
	return fmt.Sprintf("%s: %s", e.Provider, ErrNotConfigured.Error())
}

func (e *ConfigurationError) Unwrap() error {
	return ErrNotConfigured
}
