// Package logs reads the adtrim log file for the logs command.
//
// Tail returns the last N lines or the lines appended since an offset, with
// optional case-insensitive filtering so a single episode's history can be
// pulled out of a busy watcher log. Follow polls for new lines until its
// context is cancelled.
package logs
