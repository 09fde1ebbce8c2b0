package logging

import "log/slog"

// Common field names for consistent logging across commands and sinks.
const (
	FieldRunID    = "run_id"
	FieldUsername = "username"
	FieldIP       = "ip"
	FieldSink     = "sink"
	FieldCount    = "count"
	FieldPath     = "path"
	FieldError    = "error"
)

// RunID returns a slog attribute for the simulation run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Username returns a slog attribute for the username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Sink returns a slog attribute for a sink name.
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}

// Count returns a slog attribute for a record count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Path returns a slog attribute for a file path.
func Path(p string) slog.Attr {
	return slog.String(FieldPath, p)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
