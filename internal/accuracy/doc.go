// Package accuracy scores predicted ad annotations against hand-annotated
// ground truth.
//
// Score reports two families of metrics for one transcript:
//
//   - Segment-level precision, recall and F1, counted over the dense labels
//     produced by adwindow.Expand, plus the indices of false-positive and
//     false-negative segments.
//   - Time-weighted precision, recall, F1 and IoU, computed from the summed
//     overlap of ad windows produced by adwindow.Windows.
//
// Vacuous cases resolve to fixed values rather than NaN: no predicted ads
// gives precision 1.0, no actual ads gives recall 1.0, and no ads on either
// side gives an IoU of 1.0.
//
// The fixture helpers load evaluation sets laid out as
// <dir>/<name>/transcription.json plus ground_truth.json (or .yaml), and
// Evaluate scores many fixtures concurrently.
package accuracy
