// Package pipeline runs one queue item end to end: fetch, optional brand,
// fit when needed, and delivery. Every artifact it creates belongs to a
// per-job janitor whose cleanup runs on every exit path.
//
// Branding failures never fail an item; the unbranded download is delivered
// and the caption is annotated. A size rejection from the primary sink
// triggers exactly one fit pass and one retry.
package pipeline
