// Package utils contains small helpers shared by the derivation pipeline: artifact
// file handling, configuration errors, timing and parallel work groups.
package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigValidationError describes a configuration value that failed validation. It is
// raised before any input is read.
type ConfigValidationError struct {
	Path string
	Err  error
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("error validating %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying validation failure.
func (e *ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns a config validation error occurring at a given path.
func NewConfigValidationError(path string, err error) error {
	return &ConfigValidationError{Path: path, Err: err}
}

// NewConfigValidationFieldRequiredError returns a config validation error for a field missing at a
// given path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// IsConfigValidationError reports whether err, or any error it wraps, is a config validation error.
func IsConfigValidationError(err error) bool {
	var cve *ConfigValidationError
	return errors.As(err, &cve)
}
