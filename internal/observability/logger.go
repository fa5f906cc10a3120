// Package observability wires up logging and run metrics.
package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogFormat selects how log lines are rendered.
type LogFormat string

const (
	TextFormat LogFormat = "text"
	JSONFormat LogFormat = "json"
)

// NewLogger returns a run-scoped logger tagged with a fresh run_id.
// Warnings and errors are always emitted; verbose adds debug and info lines.
func NewLogger(output io.Writer, format LogFormat, verbose bool) (*logrus.Entry, error) {
	if output == nil {
		output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	switch format {
	case TextFormat, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case JSONFormat:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return logger.WithField("run_id", uuid.NewString()), nil
}
