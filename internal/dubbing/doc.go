// Package dubbing runs one dubbing request end to end.
//
// Controller.ProcessUpload validates and saves an upload, extracts audio from
// video, keeps a copy of the original for playback, hands the audio to the
// configured speech pipeline, assembles the SRT document and returns web
// paths for every served file. Translate and Synthesize are the text-only
// paths.
//
// Every file a request touches is named after its request ID, so concurrent
// requests never share paths and the controller holds no locks. Scratch files
// are removed before the response is returned; served files stay in the
// output directory until a sweep removes them.
//
// Collaborators outside the request's critical path (job ledger, storage
// mirror, notifications, progress events, metrics) are optional and
// best-effort: their failures are logged and never change the response.
package dubbing
