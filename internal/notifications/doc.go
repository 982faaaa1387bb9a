// Package notifications pushes batch events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled. Each event class
// can be switched off in the [notifications] config section.
package notifications
