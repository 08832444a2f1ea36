// Package logger builds the root logger for a Remindly process.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the root logger: JSON lines on stdout tagged with the service
// name. Components derive their own loggers from it with With().
func New(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
