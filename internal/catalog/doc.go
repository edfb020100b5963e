// Package catalog is the orchestration core of earmark. It coordinates the
// record store, the managed file store, the media tools, and the two job
// queues behind every mutating library operation: importing and
// deduplicating books, slicing and editing clips, archiving and deleting
// books with optimistic rollback, and coalescing playback ticks into
// listening sessions.
package catalog
