// Package services defines shared utilities consumed by the pipeline stages
// and the sink integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so every failure carries
//     one of the pipeline error kinds (fetch, brand, size, too-large,
//     delivery, queue) that the orchestrator dispatches on.
//
// Sink clients live in subpackages (telegram, facebook, objectstore,
// sftpsink) and only depend on this package for error markers.
package services
