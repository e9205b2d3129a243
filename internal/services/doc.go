// Package services defines shared utilities consumed by the dubbing pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, stage names, and voice
//     selectors for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into input, extraction, pipeline and filesystem errors, and map them
//     onto HTTP statuses and a single client-facing message.
//
// Use these helpers when wiring new pipeline steps so error reporting and
// observability stay uniform across the request path.
package services
