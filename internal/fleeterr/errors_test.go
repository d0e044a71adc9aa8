package fleeterr

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type classifiedError struct{ config bool }

func (e classifiedError) Error() string         { return "classified" }
func (e classifiedError) IsConfiguration() bool { return e.config }

func TestExitCode(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected int
	}{
		"nil":                    {err: nil, expected: ExitOK},
		"configuration":          {err: Configurationf("no agents"), expected: ExitBadConfiguration},
		"wrapped configuration":  {err: errors.Wrap(Configurationf("no agents"), "planning"), expected: ExitBadConfiguration},
		"fmt wrapped":            {err: fmt.Errorf("scale: %w", &ConfigurationError{Message: "x"}), expected: ExitBadConfiguration},
		"unknown worker type":    {err: &UnknownWorkerTypeError{WorkerType: "pyclient"}, expected: ExitBadConfiguration},
		"classified config":      {err: classifiedError{config: true}, expected: ExitBadConfiguration},
		"classified not config":  {err: classifiedError{config: false}, expected: ExitFailure},
		"plain infrastructure":   {err: errors.New("connection refused"), expected: ExitFailure},
		"wrapped infrastructure": {err: errors.Wrap(errors.New("timeout"), "launching"), expected: ExitFailure},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExitCode(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "bad configuration: no agents running", Configurationf("no agents %s", "running").Error())
	assert.Equal(t, `unknown worker type "x"`, (&UnknownWorkerTypeError{WorkerType: "x"}).Error())
	assert.Equal(t, `vendor "hazelcast" has no worker type "x"`,
		(&UnknownWorkerTypeError{WorkerType: "x", Vendor: "hazelcast"}).Error())
}
