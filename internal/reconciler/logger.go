package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is an interface for logging. Messages use fmt verbs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// slogLogger formats messages and hands them to a slog text handler.
type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a Logger writing text records to w at the given
// level ("debug", "info", "warn" or "error").
func NewSlogLogger(w io.Writer, level string) Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &slogLogger{logger: slog.New(handler)}
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) log(level slog.Level, msg string, args []interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Log(ctx, level, msg)
}

func (l *slogLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, msg, args) }
func (l *slogLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, msg, args) }
