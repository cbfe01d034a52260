// Package logging builds the single process-wide structured logger used
// throughout riskcore: one global logger instance rather than per-package
// loggers.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls logger construction, bound from config.Config's
// LogLevel/LogFormat.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
}

// New builds a *logrus.Logger from Config, defaulting to info/text when the
// fields are empty so a zero-value Config is still usable in tests.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

// Noop returns a logger with output discarded, used by tests that don't
// want log noise but still need a non-nil *logrus.Logger.
func Noop() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
