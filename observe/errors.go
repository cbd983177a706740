package observe

import (
	"errors"
	"fmt"
)

var (
	ErrMissingServiceName = errors.New("observe: service name is required")
	ErrUnknownExporter    = errors.New("observe: unknown exporter")
	ErrInvalidSamplePct   = errors.New("observe: sample percentage out of range")
	ErrInvalidLogLevel    = errors.New("observe: unknown log level")

	// ErrMissingOperation indicates an Operation without component or name.
	ErrMissingOperation = errors.New("observe: operation component and name are required")
)

// ConfigError names the Config field that failed validation.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s = %v", e.Err, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.Err }
