// Package preflight provides readiness checks for the external services,
// binaries and filesystem paths adtrim depends on.
//
// These checks run in two contexts:
//   - `adtrim watch` runs the local checks before its first pass so a
//     misconfigured library fails fast instead of failing every episode.
//   - `adtrim status` runs RunAll, including the LLM reachability check, and
//     renders the results as a table.
package preflight
