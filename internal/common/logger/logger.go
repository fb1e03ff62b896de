// Package logger configures the process-wide zerolog logger used by
// every component of the giveaway backend, from HTTP middleware to the
// cron sweeps.
package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init replaces the global logger with a console writer tagged with
// the service name. Debug enables debug-level output; production runs
// at info.
func Init(serviceName string, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "message"

	writer := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-6s|", i)
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		},
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Info().Msg("Logger initialized")
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info starts an info-level event.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn starts a warn-level event.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error starts an error-level event.
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal starts a fatal-level event; the process exits when it is sent.
func Fatal() *zerolog.Event {
	return log.Fatal()
}
