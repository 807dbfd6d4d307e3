package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger returns the shared logger with its level resolved for this
// invocation: the verbose flag forces debug, otherwise LOG_LEVEL from the
// environment applies, defaulting to info.
func newLogger(verbose bool) *logrus.Logger {
	Logger.SetLevel(logLevel(verbose))
	return Logger
}

func logLevel(verbose bool) logrus.Level {
	if verbose {
		return logrus.DebugLevel
	}

	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return logrus.InfoLevel
	}

	level, err := logrus.ParseLevel(raw)
	if err != nil {
		fmt.Printf("Invalid LOG_LEVEL '%s', defaulting to 'info'\n", raw)
		return logrus.InfoLevel
	}
	return level
}
