// Package classify asks a chat model where ad breaks begin and end in a
// transcript.
//
// LLMClassifier lists the transcript as numbered segments, declares the
// SegmentAnnotation function tool, and collects one annotation per tool call.
// Models that answer in plain JSON are accepted too. Every annotation passes
// struct validation and a range check against the transcript before it is
// returned sorted by segment index.
//
// Cached stores the raw completion as "<file>.segments.json" and re-parses it
// on later runs, so prompt or parser fixes apply to cached answers without
// another API call.
package classify
