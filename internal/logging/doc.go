// Package logging assembles structured slog loggers and formatting helpers used
// across tagbench.
//
// It owns the configurable console/JSON handlers, writes console output to
// stderr so reports on stdout stay machine-readable, and tees a JSON run log
// into the configured log directory. Context helpers tag lines with run IDs,
// models, strategies, and record positions. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
