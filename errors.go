package respkv

import (
	"errors"
	"fmt"
)

// Error types for specific failure scenarios
var (
	// ErrInvalidConfig indicates invalid configuration options
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClosed indicates the node has been closed
	ErrClosed = errors.New("node is closed")
)

// ConfigError reports which option rejected which value
type ConfigError struct {
	Option string
	Value  interface{}
	Err    error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %v for option %s: %v", e.Value, e.Option, e.Err)
}

// Unwrap returns the wrapped error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func invalidOption(option string, value interface{}) error {
	return &ConfigError{Option: option, Value: value, Err: ErrInvalidConfig}
}
