// Package logging builds the slog logger shared across Builder Core.
//
// New returns a *Logger configured from config.yaml (level, json or
// text format, stdout or stderr) with service and version attrs stamped
// on every record, so log lines from any package aggregate cleanly.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("realtime session opened", "user_id", userID)
//
// Handlers derive context-scoped loggers with With rather than keeping
// package-level state. Secrets never reach a log line; when a token or
// key must be identified, log a short prefix of it instead.
package logging
