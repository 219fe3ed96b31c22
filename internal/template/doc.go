// Package template owns the collection of reusable message templates.
//
// The Store keeps templates in insertion order and mirrors them to a single
// key-value blob: every mutation rewrites the whole collection once, and the
// in-memory state only changes after that write succeeds.
package template
