// Package whisperx runs WhisperX locally through uvx and converts its JSON
// output into segment-level transcripts.
//
// It is the offline alternative to the hosted transcription API. Model, CUDA
// and language options are passed via Config.
package whisperx
