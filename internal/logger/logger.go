package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the process-wide structured logger.
func Init(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing JSON (default) or text records at the given level.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
