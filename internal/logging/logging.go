// Package logging provides application-wide logging configuration.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. Logs go to stderr so stdout stays
// reserved for the reply JSON the shell consumes.
func Init(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

// ForSession returns a logger carrying the session id on every entry.
func ForSession(sessionID string) zerolog.Logger {
	return log.With().Str("session", sessionID).Logger()
}
