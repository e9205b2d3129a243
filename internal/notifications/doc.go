// Package notifications posts ntfy messages about failed (and optionally
// completed) dubbing requests and maintenance errors. Without a configured
// topic every call is a no-op.
package notifications
