package application

import "log/slog"

// ResolveLogger is shared by commands, queries, and workers in this service.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
