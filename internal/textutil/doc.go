// Package textutil provides small text helpers shared across the service:
// Unicode normalization of transcript and translation text, log excerpts,
// and filename sanitization.
package textutil
