// Package logging assembles structured slog loggers and formatting helpers used
// across szurutools.
//
// It owns the configurable console/JSON handlers, routes output to the
// terminal and the optional log file, and exposes context-aware helpers so
// board calls and runs are tagged with request IDs and run kinds. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
