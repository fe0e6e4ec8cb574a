// Package logging builds the slog loggers used by the stillmotion CLI.
//
// It provides a console handler for interactive runs (colorized when stderr
// is a TTY), a JSON handler for machine-readable logs, attribute helpers, and
// construction from application config so every component logs through the
// same pipeline.
package logging
