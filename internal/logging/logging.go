// Package logging initializes the process-wide slog loggers: JSON structured
// output on stdout for log collection, human-readable text on stderr.
package logging

import (
	"log/slog"
	"os"
)

var levelVar slog.LevelVar

// Init sets up the default structured logger. Call once at startup, before
// any component asks for a logger.
func Init(debug bool) {
	if debug {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: &levelVar,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLevel adjusts the minimum level at runtime.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// ForService returns a logger tagged with the component name, the convention
// used across the codebase.
func ForService(name string) *slog.Logger {
	return slog.Default().With("service", name)
}
