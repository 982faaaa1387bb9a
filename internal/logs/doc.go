// Package logs tails the daemon run log for `relay logs`.
//
// The last N lines are read with a fixed ring buffer so memory stays bounded
// on large logs. Follow mode polls from the last offset and starts over when
// the file shrinks, which is what happens when a new daemon run repoints
// relay.log at a fresh file.
package logs
