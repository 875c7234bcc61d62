// Package logging provides structured logging for Relay Automation Core.
//
// It wraps log/slog with configuration-driven handler selection (JSON or
// text), level filtering, and default service/version attributes.
package logging
