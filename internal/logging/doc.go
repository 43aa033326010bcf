// Package logging builds the application slog logger with console and JSON
// handlers and multi-destination output.
package logging
