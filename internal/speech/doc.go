// Package speech defines the contract between the upload controller and the
// engines that transcribe, translate and dub audio.
//
// Two engines implement Pipeline: speech/hosted calls the OpenAI and Kurdish
// TTS APIs directly, and speech/script shells out to an external program that
// prints its result as JSON.
package speech
