// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package logging provides the process-wide logger. Subsystems derive their
// own entry via DefaultLogger.WithField(logfields.LogSubsys, "...").
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// Syslog-style level names accepted by SetLogLevel.
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warning"
	levelError = "error"
)

// DefaultLogger is the base logger for the process. It is configured once at
// startup via SetupLogging and must not be replaced afterwards.
var DefaultLogger = initializeDefaultLogger()

func initializeDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: false,
		FullTimestamp:    true,
	}
	return logger
}

// SetupLogging configures the default logger from the given level and format
// ("text" or "json").
func SetupLogging(level, format string) error {
	if err := SetLogLevel(level); err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", "text":
		DefaultLogger.Formatter = &logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		}
	case "json":
		DefaultLogger.Formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetLogLevel updates the level of the default logger.
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "", levelInfo:
		DefaultLogger.SetLevel(logrus.InfoLevel)
	case levelDebug:
		DefaultLogger.SetLevel(logrus.DebugLevel)
	case levelWarn, "warn":
		DefaultLogger.SetLevel(logrus.WarnLevel)
	case levelError:
		DefaultLogger.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}
