// Package logging configures the shared slog logger: a human-readable
// console handler for interactive use, a JSON handler for machine
// consumption, and helpers for attaching standardized workflow fields.
package logging
