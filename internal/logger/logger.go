package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// L is the process-wide logger. It defaults to a text handler on stderr so
// packages and tests can log before Init runs.
var L = slog.New(slog.NewTextHandler(os.Stderr, nil))

type contextKey string

const loggerKey contextKey = "logger"

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values give Info.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Init replaces L with a JSON logger writing to stdout at the given level.
// Call it once at startup after loading config.
func Init(levelStr string) {
	InitWriter(os.Stdout, levelStr)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, levelStr string) {
	level, ok := ParseLevel(levelStr)
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}
	L = slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(L)
	if !ok {
		L.Warn("invalid LOG_LEVEL, defaulting to info", "configured", levelStr)
	}
}

// FromContext returns the request-scoped logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return L
}

// ToContext stores l in ctx.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}
