// Package script runs an external speech program for each request.
//
// The program receives its inputs and output paths as positional arguments
// and prints a JSON document as the last line of stdout. Progress chatter on
// stderr is ignored unless the program fails, in which case an
// {"error": "..."} line or the stderr tail becomes the error message.
package script
