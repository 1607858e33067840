// Package logging provides the operator-facing log stream for forge.
//
// Job logs are written by the recorder; everything the operator sees
// live goes through here. New builds an slog-backed Logger from yaml
// config and binds a Frontend to it, so a messenger can be wired in one
// step:
//
//	logger, err := logging.New(logging.Config{Format: "text"})
//	m := messenger.New(messenger.WithHandler(logger.Frontend().Handle))
//
// Collector is the second upstream handler implementation, capturing
// activity records in memory grouped by action.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config configures the operator stream. The zero value is usable:
// info-level JSON on stderr, keeping stdout free for build output.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
	// Output is stderr, stdout, or a file path opened for append.
	Output string `yaml:"output"`
	// AddSource stamps records with their source position.
	AddSource bool `yaml:"add_source"`
}

// Logger is the operator stream. It embeds the underlying slog.Logger
// for direct structured logging and carries a Frontend bound to it for
// messenger wiring.
type Logger struct {
	*slog.Logger
	frontend *Frontend
}

// New builds the operator stream for the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := levelFor(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	sink, err := sinkFor(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "", "json":
		handler = slog.NewJSONHandler(sink, opts)
	case "text":
		handler = slog.NewTextHandler(sink, opts)
	default:
		return nil, fmt.Errorf("invalid logging config: unsupported format %q", cfg.Format)
	}

	l := &Logger{Logger: slog.New(handler)}
	l.frontend = NewFrontend(l.Logger)
	return l, nil
}

// Frontend returns the messenger handler that renders activity records
// onto this stream.
func (l *Logger) Frontend() *Frontend {
	return l.frontend
}

// levelFor maps a configured level name onto slog, defaulting to info.
func levelFor(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", name)
	}
}

// sinkFor resolves the configured output, defaulting to stderr so the
// stream never interleaves with build output on stdout.
func sinkFor(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log output %q: %w", output, err)
		}
		return file, nil
	}
}
