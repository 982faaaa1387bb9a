// Package textutil provides text helpers for object keys and compact operator
// displays.
//
// Slug folds titles to ASCII (via golang.org/x/text normalization) so the
// archive sinks get stable, URL-safe keys; Truncate shortens queue lines for
// listings without splitting multi-byte characters.
package textutil
