// Package store implements the SQLite-backed record-store collaborator:
// durable rows for books, clips, and sessions plus the fingerprint lookup
// the ingestion dedup depends on. The orchestration layer consumes it
// through a narrow interface; nothing here knows about files or playback.
package store
