// Package transcribe turns episode audio into segment-level transcripts.
//
// OpenAIClient uploads audio to an OpenAI-compatible transcription endpoint
// and requests verbose JSON with segment timestamps. Cached wraps any
// Transcriber and reuses the "<file>.transcription.json" sidecar when present,
// so reruns over the same episode never pay for a second transcription.
package transcribe
