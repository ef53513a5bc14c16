package parameter

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
)

// Validator checks parameter definitions for configuration errors
type Validator struct{}

// NewValidator creates a new parameter validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate reports every configuration problem of param as one ConfigError.
// It returns nil for a usable definition.
func (v *Validator) Validate(param *Parameter) error {
	var result *multierror.Error

	if isBlank(param.Name) {
		result = multierror.Append(result, &ValidationError{
			Parameter: param.Name,
			Message:   "name is required",
		})
	}

	if err := v.validateType(param); err != nil {
		result = multierror.Append(result, err)
	}

	if err := v.validatePresentation(param); err != nil {
		result = multierror.Append(result, err)
	}

	if param.Type.IsMultiLevel() {
		if err := v.validateMultiLevel(param); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if param.RepositoryPath {
		if err := v.validateRepository(param); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.WrapConfigError(param.Name, "invalid definition", err)
	}
	return nil
}

// ValidateType reports only an unrecognised type, the one check resolution depends on
func (v *Validator) ValidateType(param *Parameter) error {
	if err := v.validateType(param); err != nil {
		return errors.WrapConfigError(param.Name, "invalid definition", err)
	}
	return nil
}

func (v *Validator) validateType(param *Parameter) error {
	if param.Type.Valid() {
		return nil
	}
	return &ValidationError{
		Parameter: param.Name,
		Message:   "unknown parameter type",
		Value:     string(param.Type),
	}
}

func (v *Validator) validatePresentation(param *Parameter) error {
	if param.VisibleItemCount < 1 {
		return &ValidationError{
			Parameter: param.Name,
			Message:   "visibleItemCount must be >= 1",
			Value:     fmt.Sprintf("%d", param.VisibleItemCount),
		}
	}
	if param.MultiSelectDelimiter == "" {
		return &ValidationError{
			Parameter: param.Name,
			Message:   "multiSelectDelimiter must not be empty",
		}
	}
	return nil
}

func (v *Validator) validateMultiLevel(param *Parameter) error {
	if isBlank(param.PropertyFile) {
		return &ValidationError{
			Parameter: param.Name,
			Message:   "multi-level parameters require a tab-delimited propertyFile",
		}
	}
	for _, level := range param.LevelNames() {
		if isBlank(level) {
			return &ValidationError{
				Parameter: param.Name,
				Message:   "level column names must not be blank",
				Value:     param.Value,
			}
		}
	}
	if len(param.LevelNames()) == 0 {
		return &ValidationError{
			Parameter: param.Name,
			Message:   "multi-level parameters require level column names in value",
		}
	}
	return nil
}

func (v *Validator) validateRepository(param *Parameter) error {
	if strings.TrimSpace(param.Repository.URL) == "" {
		return &ValidationError{
			Parameter: param.Name,
			Message:   "svnPath parameters require repository.url",
		}
	}
	return nil
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Message   string
	Value     string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parameter '%s' validation failed: %s", e.Parameter, e.Message)
	}
	return fmt.Sprintf("parameter '%s' validation failed: %s (value: '%s')", e.Parameter, e.Message, e.Value)
}
