// Package workflow runs batches: it loads the work queue, drives each item
// through the pipeline one at a time, dequeues items only after the primary
// sink accepted them, and waits out the operator-controlled cooldown between
// items.
//
// Pause is honoured at the top of each item, between pipeline stages, and
// inside the cooldown; it never interrupts a running stage. Skip only ever
// shortens a cooldown. A queue that cannot be read or rewritten aborts the
// batch; every other failure is reported for its item and the batch moves on,
// leaving the failed line in the queue for a later run.
//
// Each terminal item outcome produces exactly one Report, which is logged,
// recorded in the history store, pushed to ntfy, and handed to any
// registered report listeners (IPC status, the redis publisher).
package workflow
