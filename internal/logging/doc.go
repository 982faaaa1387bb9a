// Package logging assembles the structured slog loggers used across relay.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with job IDs, stages, and correlation
// IDs. Terminal outputs get the human console format while file outputs can
// be switched to JSON independently, so a foreground daemon stays readable
// and its run log stays machine-parseable.
//
// The package also carries the rate limiters used for progress reporting:
// ProgressSampler (percentage buckets) and Throttle (minimum interval).
package logging
