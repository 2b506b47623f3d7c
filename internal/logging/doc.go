// Package logging configures the process-wide slog logger for menusearch.
//
// Logs go to stderr as text by default. When a log file is configured,
// JSON records are also written to a size-rotated file (by default under
// ~/.menusearch/logs/) so sync runs and cache fallbacks can be inspected
// after the fact.
package logging
