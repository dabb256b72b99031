// Package logging assembles structured slog loggers and formatting helpers.
//
// It owns the console and JSON handlers, fans records out to the terminal and
// the JSON log file, and stamps run IDs, item names, and correlation IDs
// carried on a context onto every record. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
