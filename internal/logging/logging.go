// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/simfleet/internal/fleeterr"
)

// Options control the logger. The zero value logs at info level to stderr.
type Options struct {
	Level   string
	NoColor bool
	Output  io.Writer
}

// Configure sets up the standard logger with a full-timestamp text formatter.
// An unknown level is a configuration error.
func Configure(opts Options) error {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return errors.WithStack(&fleeterr.ConfigurationError{Message: err.Error()})
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	log.SetLevel(level)
	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		DisableColors: opts.NoColor,
	})
	return nil
}

// Component returns a logger entry tagged with the component name.
func Component(name string) *log.Entry {
	return log.WithField("component", name)
}
