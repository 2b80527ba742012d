package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand   LogType = "CMD"
	TypeDB        LogType = "DB"
	TypeSystem    LogType = "SYS"
	TypeScheduler LogType = "SCHED"
	TypeError     LogType = "ERR"
)

// Handler is a compact colored console handler. Records are routed by their
// "type" attribute (cmd/db/sched/error) into a bracketed prefix.
type Handler struct {
	level slog.Level
	attrs []slog.Attr
}

func NewHandler(level slog.Level) *Handler {
	return &Handler{level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkip(&r) {
		return nil
	}

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor, levelText = colorPurple, "DEBUG"
	case slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	default:
		levelColor, levelText = colorGreen, "INFO"
	}

	var sb strings.Builder
	appendAttr := func(a slog.Attr) bool {
		if a.Key == "type" {
			return true
		}
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)

	fmt.Printf("%s[%s] [%s%s%s] [%s] %s%s%s\n",
		colorWhite,
		time.Now().Format("15:04:05"),
		levelColor,
		levelText,
		colorWhite,
		logType(&r),
		r.Message,
		sb.String(),
		colorReset,
	)
	return nil
}

// disgo's gateway internals are chatty at debug level; drop the known noise.
var skippedMessages = []string{
	"gateway event",
	"sending heartbeat",
	"new request",
	"new response",
	"received gateway message",
}

func shouldSkip(r *slog.Record) bool {
	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func logType(r *slog.Record) LogType {
	t := TypeSystem
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "type" {
			return true
		}
		switch a.Value.String() {
		case "cmd":
			t = TypeCommand
		case "db":
			t = TypeDB
		case "sched":
			t = TypeScheduler
		case "error":
			t = TypeError
		}
		return false
	})
	return t
}
