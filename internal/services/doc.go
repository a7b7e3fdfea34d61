// Package services defines shared utilities consumed by the trimming pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode paths, chunk indices, stage names and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger statuses (failed vs review).
//
// Use these helpers when wiring new collaborators so error handling and
// observability stay uniform across the pipeline.
package services
