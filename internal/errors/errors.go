package errors

import (
	stderrors "errors"
	"fmt"
)

// ConfigError reports a parameter definition that cannot be resolved as configured.
// Configuration errors are always propagated to the caller, never defaulted.
type ConfigError struct {
	Parameter string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	var msg string
	if e.Parameter != "" {
		msg = fmt.Sprintf("parameter '%s': %s", e.Parameter, e.Message)
	} else {
		msg = e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error
func NewConfigError(parameter, message string) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Message:   message,
	}
}

// WrapConfigError creates a configuration error caused by err
func WrapConfigError(parameter, message string, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Message:   message,
		Err:       err,
	}
}

// IsConfigError reports whether err is or wraps a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return stderrors.As(err, &ce)
}

// SubmissionError represents a submitted value that cannot be mapped onto the parameter
type SubmissionError struct {
	Parameter string
	Message   string
}

// Error implements the error interface
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("parameter '%s' submission rejected: %s", e.Parameter, e.Message)
}

// NewSubmissionError creates a new submission error
func NewSubmissionError(parameter, message string) *SubmissionError {
	return &SubmissionError{
		Parameter: parameter,
		Message:   message,
	}
}

// IsSubmissionError reports whether err is or wraps a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return stderrors.As(err, &se)
}
