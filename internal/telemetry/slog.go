package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps a configured level string onto a slog.Level, falling back
// to Info for anything it does not recognise.
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

// SetupLogger builds a handler from the logging section of the configuration
// and installs it as the process-wide slog default, so packages log through
// plain slog calls without threading a logger value around.
//
// format "json" selects the JSON handler; any other value falls back to the
// text handler for local development. Source locations are attached only at
// debug level.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logging configured", "format", format, "level", lvl.String())
}
