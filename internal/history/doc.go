// Package history records one row per terminal item outcome in SQLite.
//
// The log is append-only and informational: the work queue file stays the
// source of truth for what remains to be done. Schema changes bump
// schemaVersion; users delete history.db to adopt a new schema.
package history
