package logger

import (
	"io"
	"log/slog"
	"os"
)

func Init(env string) *slog.Logger {
	return New(os.Stdout, env)
}

// New builds the logger for env writing to w.
func New(w io.Writer, env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case "production":
		logger = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "development":
		logger = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		logger = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return logger
}
