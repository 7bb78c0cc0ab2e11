package shared

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed configuration or a malformed request.
// It is always raised before any call to the language model is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ResponseParseError means a model reply could not be interpreted as the
// structured payload the caller expected.
type ResponseParseError struct {
	Stage  string // "generator" or "evaluator"
	Reason string
	Raw    string
	Err    error
}

func (e *ResponseParseError) Error() string {
	stage := e.Stage
	if stage == "" {
		stage = "llm response"
	}
	msg := fmt.Sprintf("%s: could not parse model response: %s", stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// ServiceError wraps a failure of the outbound model call itself
// (network, authentication, rate limiting).
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("llm service error: %v", e.Err)
	}
	return fmt.Sprintf("llm service error (%s): %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsResponseParse reports whether err is or wraps a ResponseParseError.
func IsResponseParse(err error) bool {
	var p *ResponseParseError
	return errors.As(err, &p)
}

// IsService reports whether err is or wraps a ServiceError.
func IsService(err error) bool {
	var s *ServiceError
	return errors.As(err, &s)
}
