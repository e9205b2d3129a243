// Package storage mirrors served output files to an S3-compatible bucket
// using the MinIO client. Mirroring runs after a request succeeds and is
// best effort: the local output directory stays the source of truth for
// /outputs/ URLs.
package storage
