package logging

import (
	"context"
	"log/slog"

	"github.com/forgebuild/forge/message"
)

// Frontend renders activity records to a structured logger. It is the
// default upstream handler for embeddings that have no status screen:
// install Frontend.Handle on the messenger and every surviving record
// becomes one slog line.
type Frontend struct {
	logger *slog.Logger
}

// NewFrontend creates a frontend writing to the given logger.
func NewFrontend(logger *slog.Logger) *Frontend {
	return &Frontend{logger: logger}
}

// Handle renders one record. It satisfies the messenger Handler shape.
func (f *Frontend) Handle(msg *message.Message) {
	attrs := make([]any, 0, 10)
	attrs = append(attrs, "kind", string(msg.Kind))
	if msg.ElementName != "" {
		attrs = append(attrs, "element", msg.ElementName)
	}
	if msg.ActionName != "" {
		attrs = append(attrs, "action", msg.ActionName)
	}
	if msg.LogPath != "" {
		attrs = append(attrs, "log_path", msg.LogPath)
	}
	if msg.HasElapsed {
		attrs = append(attrs, "elapsed", msg.Elapsed.String())
	}
	if msg.Detail != "" {
		attrs = append(attrs, "detail", msg.Detail)
	}

	f.logger.Log(context.Background(), level(msg.Kind), msg.Text, attrs...)
}

// level maps record kinds onto slog levels.
func level(kind message.Kind) slog.Level {
	switch kind {
	case message.Debug:
		return slog.LevelDebug
	case message.Warn:
		return slog.LevelWarn
	case message.Error, message.Fail, message.Bug:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
