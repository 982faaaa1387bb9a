// Package main hosts the relay CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, sends operator
// signals to it over the local socket (or a redis stream for a remote host),
// and reads the queue file and history database directly for listing
// commands so they work with or without a daemon.
package main
