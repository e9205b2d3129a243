// Package logging assembles structured slog loggers and formatting helpers used
// across dengbej.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code automatically
// tags log lines with request IDs, stages, and voice selectors. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
