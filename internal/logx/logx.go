// Package logx builds the application logger.
package logx

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"pbv-lab/internal/config"
)

// New creates a logger writing to out (stderr when nil).
func New(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	}

	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	return logger, nil
}

// WithComponent creates a logger with component field.
func WithComponent(log logrus.FieldLogger, component string) logrus.FieldLogger {
	return log.WithField("component", component)
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
