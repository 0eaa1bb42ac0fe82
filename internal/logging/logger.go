// Package logging provides the structured, leveled logger shared by every
// provider and the listener glue, built on github.com/rs/zerolog with a
// zerolog.Logger field and Info()/Warn()/Error() chains throughout.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger, writing human-readable console output to
// stderr with the level read from the named environment variable,
// defaulting to "info".
func New(envVar string) zerolog.Logger {
	level := parseLevel(os.Getenv(envVar))
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
