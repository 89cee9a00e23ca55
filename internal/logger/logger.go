package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fuelvat/invoicing-core/internal/config"
)

// NewLogger builds the process-wide slog.Logger: JSON output on stdout,
// level taken from config, source locations attached at debug level.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level)

	return logger
}

// parseLevel maps a config string to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
