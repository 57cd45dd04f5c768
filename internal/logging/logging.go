// Package logging builds the structured slog logger used across psicoscore.
//
// Records are JSON lines by default:
//
//	{"ts":"2024-01-15T10:30:00Z","level":"INFO","msg":"document classified","scores":12,"unrecognized":3}
//
// PSICOSCORE_DEBUG=1 forces debug level regardless of configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugEnv enables debug logging when set to "1".
const DebugEnv = "PSICOSCORE_DEBUG"

// Config configures the logger.
type Config struct {
	// Output defaults to os.Stderr.
	Output io.Writer
	Level  slog.Level
	// Format is "json" (default) or "text".
	Format string
	// Debug overrides Level.
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelWarn,
		Format: "json",
	}
}

// ParseLevel converts debug|info|warn|error into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
}

// New creates a logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	level := cfg.Level
	if cfg.Debug || os.Getenv(DebugEnv) == "1" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	return slog.New(handler)
}

// LogStoreOpened records which pattern store backend is in use.
func LogStoreOpened(logger *slog.Logger, backend, path string) {
	logger.Debug("pattern store opened", "backend", backend, "path", path)
}

// LogClassified records the outcome of classifying one document.
func LogClassified(logger *slog.Logger, scores, unrecognized, duplicates int) {
	logger.Info("document classified",
		"scores", scores,
		"unrecognized", unrecognized,
		"duplicates_dropped", duplicates,
	)
}

// LogConfigLoaded records the configuration file in effect.
func LogConfigLoaded(logger *slog.Logger, path string) {
	logger.Debug("configuration loaded", "config_path", path)
}
