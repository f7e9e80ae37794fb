package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ExtractionFailure means neither the model nor the fallback parser could
// produce a usable posting from the text.
type ExtractionFailure struct {
	Reason  string
	RawText string
	Err     error
}

func (e *ExtractionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// AdapterFailure is a source that could not be read during a run.
type AdapterFailure struct {
	Source string
	Err    error
}

func (e *AdapterFailure) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *AdapterFailure) Unwrap() error {
	return e.Err
}

// ConstraintError is returned when inserting a fingerprint that already exists.
type ConstraintError struct {
	Fingerprint string
}

func (e *ConstraintError) Error() string {
	return "fingerprint already stored: " + e.Fingerprint
}

// ConfigurationError is a startup problem that must abort the process.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
