// Package ffmpeg runs ffmpeg invocations and classifies their stderr.
//
// Callers build the argument list; Run executes it with stderr captured for
// error reporting. The exit status is returned but callers that produce a
// file check the output on disk rather than trusting it alone.
package ffmpeg
