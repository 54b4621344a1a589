// logger.go - Structured logging for shieldd.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the daemon's zerolog root logger with a console writer.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "shieldd").Logger()
}
