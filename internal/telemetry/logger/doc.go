// Package logger provides structured logging for snakeview.
//
// Files:
//
//   - logger.go: slog handler setup, level control, default logger
//   - handler.go: run ID and source attributes taken from the context
//   - context.go: context keys for the run ID and frame source
//   - throttle.go: rate limiting of per-frame warnings
//   - sanitize.go: rendering of non-finite float attributes
package logger
