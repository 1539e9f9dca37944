// Package logging builds the process-wide zerolog.Logger from
// agent.log (spec.md §6), console-formatted for a terminal and
// structured JSON otherwise.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New parses level (trace, debug, info, warn, error) and returns the
// root logger every subsystem derives its own component logger from via
// .With().Str("component", name).Logger().
func New(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
