package logging

import (
	"io"
	"log/slog"
	"os"

	cfg "github.com/Catorpilor/rentsol/internal/config"
)

// Setup installs the process-wide slog logger writing to stdout.
func Setup(c cfg.LoggingConfig) *slog.Logger {
	l := New(os.Stdout, c)
	slog.SetDefault(l)
	return l
}

func New(w io.Writer, c cfg.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	var h slog.Handler
	if c.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func ParseLevel(s string) slog.Level {
	switch s {
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
