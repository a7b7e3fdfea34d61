// Package adwindow turns sparse ad/content transition annotations into dense
// per-segment labels and contiguous time windows.
//
// An Annotation marks the segment index at which a block begins; the label
// stays in effect until the next annotation with a higher index. Two pure
// operations build on that model:
//
//   - Expand produces one Label per transcript segment. Segments before the
//     first annotation default to content, and an empty annotation list
//     yields an all-content result.
//   - Windows walks the annotations over segment timing and emits
//     time-ordered windows, closing a window only when the label changes. An
//     empty annotation list yields no windows at all, so downstream audio
//     editing leaves the file untouched.
//
// The two empty-input defaults differ on purpose and must stay distinct.
// Both operations sort their input (stable by segment index) before use and
// reject indices outside the transcript with an *IndexError.
//
// Everything here is allocation-local and free of shared state; callers may
// run it concurrently across transcripts without locking.
package adwindow
