package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string // Go layout used for the time field
	Output     string // stdout, stderr, or file path
	NoColor    bool
}

// DefaultConfig returns the configuration used when none is loaded.
// Logs go to stderr so command output on stdout stays machine readable.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup initializes the global logger. The returned closer releases the
// log file when Output is a path; it is a no-op otherwise.
func Setup(config LogConfig) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return nopCloser{}, err
	}
	zerolog.SetGlobalLevel(level)

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch config.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, err
		}
		output, closer = file, file
		config.NoColor = true
	}

	if !strings.EqualFold(config.Format, "json") {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
			NoColor:    config.NoColor,
		}
	}

	log.Logger = zerolog.New(output).With().
		Timestamp().
		Logger()

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return closer, nil
}

// Discard silences the global logger. Tests use it to keep output clean.
func Discard() {
	log.Logger = zerolog.Nop()
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRequestID returns a logger with a request ID field
func WithRequestID(component, requestID string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("request_id", requestID).
		Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
