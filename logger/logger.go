package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options controls where and how the logger writes.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Empty falls back to
	// the LOG_LEVEL environment variable, then info.
	Level string
	// File, when set, receives JSON logs appended to the file.
	File string
	// Pretty selects human-readable console output. Ignored when File is set.
	Pretty bool
	// Output overrides stdout for console logging.
	Output io.Writer
}

// New builds a logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	level := parseLogLevel(levelName)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var output io.Writer
	switch {
	case opts.File != "":
		//nolint:gosec // G304: User-specified log file path is intentional
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		output = file
	case opts.Pretty:
		output = zerolog.ConsoleWriter{Out: out}
	default:
		output = out
	}

	log := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	switch {
	case opts.File != "":
		log.Debug().Str("path", opts.File).Str("level", level.String()).Msg("Logger initialized")
	case opts.Pretty:
		log.Debug().Str("format", "pretty").Str("level", level.String()).Msg("Logger initialized")
	default:
		log.Debug().Str("level", level.String()).Msg("Logger initialized")
	}

	return log, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
