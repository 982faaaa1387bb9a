// Package remote carries operator commands over a redis stream so a relay
// daemon on another host can be paused, resumed, skipped or retuned.
//
// Publishers XADD one JSON-encoded Command per entry; the daemon's Listener
// XREADs new entries and hands them to a Handler. Only entries added after
// the listener starts are applied.
package remote
