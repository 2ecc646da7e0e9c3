package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. Level comes from LOG_LEVEL;
// production defaults to warnings and errors only.
func Init() {
	InitWriter(os.Stderr)
}

// InitWriter is Init with an explicit destination, used by the client so
// log lines do not tear the terminal UI.
func InitWriter(w io.Writer) {
	level := slog.LevelWarn

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
