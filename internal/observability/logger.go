// Package observability configures the process-wide logger and tracer
// provider.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" json:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"` // trace, debug, info, warn, error
	Format     string `yaml:"format" json:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
	TimeFormat string `yaml:"time_format" json:"time_format" mapstructure:"time_format"`
	Output     string `yaml:"output" json:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultLogConfig logs info and above to stderr in console format, keeping
// stdout free for results.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// SetupLogger configures the global zerolog logger. The returned closer
// releases a log file, if one was opened.
func SetupLogger(config LogConfig) (io.Closer, error) {
	level := zerolog.InfoLevel
	if config.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(config.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsed
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
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output, closer = file, file
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}
	if !strings.EqualFold(config.Format, "json") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: config.TimeFormat}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return closer, nil
}

// WithComponent returns the global logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
