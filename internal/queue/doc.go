// Package queue implements the file-backed work queue.
//
// The backing store is a newline-delimited text file. Blank lines and lines
// starting with '#' are ignored. Load returns descriptors in reverse file
// order, so the most recently appended line is processed first. Every
// mutation first copies the whole file to the backup path and then rewrites
// the queue atomically.
//
// Relay processes coordinate mutations through an advisory flock on a
// sibling lock file; editors outside relay are not locked out and the last
// writer wins.
package queue
