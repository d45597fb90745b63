// Package jobs tracks background pipeline runs. Submissions return an opaque
// job ID immediately; the run executes on its own goroutine and callers poll
// for a terminal status. Stores are swappable: an in-memory store for the
// default volatile registry, or SQLite when history must survive restarts.
package jobs
