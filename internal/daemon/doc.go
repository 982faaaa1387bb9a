// Package daemon coordinates the long-running relay process.
//
// It wires configuration, the work queue, the control state and the batch
// orchestrator into a single lifecycle with flock-based locking to prevent
// multiple instances. Operator surfaces (the IPC server and the redis remote
// listener) call into the Daemon rather than the orchestrator directly so
// every signal is logged and validated in one place.
package daemon
