// Package logging builds the slog loggers used across earmark: a compact
// console handler for interactive use, a JSON handler for machine
// consumption, and helpers for component-scoped loggers and typed attrs.
package logging
