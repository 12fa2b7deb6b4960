package testutil

import "log/slog"

// DiscardLogger returns a logger that drops all records. Use it for
// components that require a logger but whose output the test ignores.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
