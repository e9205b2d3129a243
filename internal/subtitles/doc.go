// Package subtitles renders SubRip (SRT) documents from timed speech
// segments.
//
// FormatTimestamp and Assemble produce the byte-exact documents returned to
// clients; Parse and Validate read them back for the CLI and for sanity
// checks on collaborator output.
package subtitles
