// Package logging builds the application slog.Logger and provides attribute
// helpers with standardized field names.
//
// Two output formats are supported: a compact key=value console format for
// interactive use and JSON for machine consumption. The console handler pulls
// the component attribute into the message prefix so per-component loggers
// read naturally.
package logging
