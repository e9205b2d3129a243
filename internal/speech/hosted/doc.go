// Package hosted implements the speech pipeline against hosted APIs.
//
// Transcription and translation go through the OpenAI API (Whisper verbose
// JSON with segment timestamps, then a chat model prompted for Central
// Kurdish). Dubbed speech comes from the Kurdish TTS service when an API key
// is configured and from OpenAI speech synthesis otherwise. ffmpeg converts
// the synthesized WAV to MP3 and derives the background and voice tracks from
// the source audio.
package hosted
