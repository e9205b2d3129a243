// Package kurdishtts is a minimal client for the Kurdish TTS proxy API, which
// turns Sorani text into speech for one of several numbered voices
// ("1_speaker" through "4_speaker").
package kurdishtts
