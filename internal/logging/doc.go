// Package logging builds the application's slog loggers and defines the
// standardized attribute keys shared across components.
package logging
