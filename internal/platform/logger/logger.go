// Package logger constructs the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/platform/config"
)

// New returns a slog logger writing JSON to stdout. Development and demo get
// debug level; production stays at info.
func New(env config.Environment) *slog.Logger {
	level := slog.LevelDebug
	if env.IsProduction() {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "telehealth-api", "env", string(env))
}
