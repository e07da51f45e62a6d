// Package logging assembles structured slog loggers and formatting helpers used
// across foodlog commands.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so note writes are tagged with the note
// path, meal id, write id, and correlation id. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
