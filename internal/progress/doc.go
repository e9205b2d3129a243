// Package progress fans out per-request stage events to websocket clients.
//
// The upload controller publishes a request's stages into a bounded Hub.
// A client that sends its own X-Request-ID with the upload can open
// /api/progress/{id} beforehand and watch the stages arrive. The stream
// closes after the completed or failed event.
package progress
