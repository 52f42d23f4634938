// Package logging configures zerolog for the archiver: one global logger
// set up by the CLI, per-component child loggers everywhere else.
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the logging options the fetch-items CLI exposes.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	// Unrecognized values fall back to info.
	Level string

	// Pretty switches from JSON lines to human-readable console output.
	Pretty bool

	// Output receives the log stream, normally os.Stderr.
	Output io.Writer
}

// Setup installs the global logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// NewLogger returns a child of the global logger tagged with a component
// name (client, driver, runner).
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level guidelines:
//
// Debug: request flow detail, marker decisions per component
// Info: per-item status lines, progress summaries, run start/finish
// Warn: retry attempts, rate-limit pauses, missing auth token
// Error: exhausted fetches, storage failures
//
// Context fields: item ("#000123"), endpoint, attempt/max_attempts,
// remaining, wait.
