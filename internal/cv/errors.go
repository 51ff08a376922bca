package cv

import (
	"errors"
	"fmt"
)

// Error types
var (
	ErrInvalidImage      = errors.New("invalid image provided")
	ErrTemplateTooLarge  = errors.New("template larger than search image")
	ErrInvalidConfidence = errors.New("confidence must be in (0, 1]")
	ErrInvalidAttempts   = errors.New("max attempts must be at least 1")
	ErrInvalidDelay      = errors.New("retry delay must not be negative")

	// ErrExhausted matches every *ExhaustedError
	ErrExhausted = errors.New("element not found")
)

// ConfigurationError reports a request that can never succeed: a malformed
// needle, an impossible threshold or attempt count. It is raised before any
// screen capture and is never retried.
type ConfigurationError struct {
	Name string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid locate configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid locate configuration for %s: %v", e.Name, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CaptureError reports that the screen source failed during a locate attempt
type CaptureError struct {
	Name    string
	Attempt int
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screen capture failed while locating %s (attempt %d): %v", e.Name, e.Attempt, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ExhaustedError is the error form of an exhausted Outcome
type ExhaustedError struct {
	Name     string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s not found after %d attempts", e.Name, e.Attempts)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func configError(name string, err error) error {
	return &ConfigurationError{Name: name, Err: err}
}
