// Package watch polls a directory tree for new episodes and trims each one.
//
// A Watcher holds an exclusive flock on the state directory so only one
// instance processes a library at a time. Every pass walks the directory,
// hands eligible files to the processor in lexical order and then sleeps for
// the configured interval until the context is cancelled. Split parts, render
// temporaries, hidden files and legacy markers are never picked up.
package watch
