// Package fleeterr contains the error taxonomy shared by the registry, the
// deployment planner and the CLI.
//
// Configuration errors are fatal: they are raised synchronously before any
// worker has been launched and are never retried. The CLI maps them onto a
// dedicated exit code so that a bad fleet layout can be told apart from a
// transport or infrastructure failure.
package fleeterr

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	// ExitOK is returned when a command completed successfully.
	ExitOK = 0
	// ExitFailure is returned for infrastructure and launch failures.
	ExitFailure = 1
	// ExitBadConfiguration is returned when the requested fleet layout is invalid.
	ExitBadConfiguration = 2
)

// ConfigurationError is returned when the fleet state cannot satisfy a request,
// e.g. planning against an empty registry or placing clients when every agent
// is reserved for members.
type ConfigurationError struct {
	Message string
}

func (err *ConfigurationError) Error() string {
	return "bad configuration: " + err.Message
}

// Configurationf returns a ConfigurationError with a formatted message and a stack trace attached.
func Configurationf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigurationError{Message: fmt.Sprintf(format, args...)})
}

// UnknownWorkerTypeError is returned by a vendor driver that has no template
// for the requested worker type.
type UnknownWorkerTypeError struct {
	WorkerType string
	Vendor     string
}

func (err *UnknownWorkerTypeError) Error() string {
	if err.Vendor != "" {
		return fmt.Sprintf("vendor %q has no worker type %q", err.Vendor, err.WorkerType)
	}
	return fmt.Sprintf("unknown worker type %q", err.WorkerType)
}

// classifier is implemented by errors from other packages that belong to the
// configuration category (malformed addresses, for instance).
type classifier interface {
	IsConfiguration() bool
}

// IsConfiguration reports whether err, or any error it wraps, is a
// configuration error.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return true
	}
	var typeErr *UnknownWorkerTypeError
	if errors.As(err, &typeErr) {
		return true
	}
	var c classifier
	if errors.As(err, &c) {
		return c.IsConfiguration()
	}
	return false
}

// ExitCode maps err onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfiguration(err):
		return ExitBadConfiguration
	default:
		return ExitFailure
	}
}
