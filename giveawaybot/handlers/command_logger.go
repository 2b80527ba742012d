package handlers

import (
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
)

const slowCommandThreshold = 2 * time.Second

// WrapWithLogging instruments a command handler with timing and outcome
// logging.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		err := h(e)
		duration := time.Since(start)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.Duration("took", duration),
		}

		switch {
		case err != nil:
			slog.Error("Command failed", append(attrs, slog.Any("error", err))...)
		case duration > slowCommandThreshold:
			slog.Warn("Command executed slowly", attrs...)
		default:
			slog.Info("Command completed", attrs...)
		}
		return err
	}
}

// WrapComponentWithLogging does the same for component interactions.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		start := time.Now()
		err := h(e)

		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.Duration("took", time.Since(start)),
		}
		if err != nil {
			slog.Error("Component interaction failed", append(attrs, slog.Any("error", err))...)
		} else {
			slog.Info("Component interaction completed", attrs...)
		}
		return err
	}
}
