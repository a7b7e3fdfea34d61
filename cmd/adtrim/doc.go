// Package main hosts the adtrim CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the pipeline
// collaborators (transcriber, classifier, audio editor, ledger) on demand and
// hands them to the internal packages. Commands that stay offline, such as
// score and config, never require API credentials.
//
// Keep this package lean: add behaviour to the internal packages first and
// surface it here through a dedicated command or flag.
package main
