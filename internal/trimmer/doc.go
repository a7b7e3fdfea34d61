// Package trimmer runs the ad removal pipeline for a single episode.
//
// Process splits the episode into upload-sized parts, then for each part
// transcribes it, asks the classifier for ad/content transitions, derives time
// windows and renders the part with every ad window swapped for the
// notification clip. The parts are joined back over the original (or an
// explicit output) and the outcome is recorded in the ledger. Collaborators are
// injected through Trimmer's fields so tests can stub any stage.
package trimmer
