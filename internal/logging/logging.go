package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs a text logger on stderr as the default slog logger. The level
// comes from LOG_LEVEL and falls back to def.
func Init(def slog.Level) *slog.Logger {
	logger := New(os.Stderr, Level(def))
	slog.SetDefault(logger)
	return logger
}

// New builds a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
}

// Level reads LOG_LEVEL. Unknown or missing values yield def.
func Level(def slog.Level) slog.Level {
	l, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return def
	}
	switch l {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}
