// Package transcript models the time-indexed text produced by speech-to-text.
//
// A Transcript is an ordered, immutable list of Segments; segment indices are
// assigned 0..n-1 in file order when a payload is decoded. Decode accepts
// both the OpenAI verbose_json transcription shape and WhisperX JSON output,
// which share the segments[].start/end/text layout.
//
// FormatIndexed renders the "Segment <i>: <text>" listing that the
// classification prompt is built from.
package transcript
