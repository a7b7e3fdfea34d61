// Package ledger records which episodes have been trimmed in a SQLite
// database so the watcher never processes the same file twice.
//
// Each entry captures the episode path, its lifecycle status, the derived
// ad windows and the total ad time removed. Completed and review entries
// count as processed. Legacy `.hit.<name>.txt` marker files written next to
// an episode are honoured as processed too, so directories trimmed by older
// tooling are not redone.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package ledger
