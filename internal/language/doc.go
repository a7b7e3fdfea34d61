// Package language normalizes the language hints passed to transcription
// providers. Codes arrive from config, ffprobe tags or provider responses in
// ISO 639-1, ISO 639-2 or word form and leave as ISO 639-1.
package language
