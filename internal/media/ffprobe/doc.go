// Package ffprobe inspects local media with ffprobe.
//
// Probe returns the handful of facts the pipeline needs: duration and frame
// dimensions for upload metadata, and stream presence for sanity checks on
// composited or re-encoded outputs.
package ffprobe
