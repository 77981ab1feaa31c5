package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"tskit/internal/config"
)

// NewLogger returns the application logger. Output goes to stderr so that
// command output on stdout stays clean for pipes.
func NewLogger(cfg *config.Config, version string) *logrus.Entry {
	return newLogger(cfg, version, os.Stderr)
}

func newLogger(cfg *config.Config, version string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(getLogLevel(cfg))
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: !cfg.Debug}
	return log.WithFields(logrus.Fields{
		"debug":   cfg.Debug,
		"version": version,
	})
}

func getLogLevel(cfg *config.Config) logrus.Level {
	if cfg.Debug || os.Getenv("DEBUG") == "TRUE" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}
