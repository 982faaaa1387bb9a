// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI and the console.
//
// Request/response DTOs live in types.go; add new endpoints there so the CLI
// and daemon stay in step. Client calls carry a timeout so commands fail fast
// when the daemon is wedged; Send is the exception because it lasts as long
// as the pipeline.
package ipc
