// Package library defines the persistent data model shared by the record
// store, the orchestration layer, and the CLI: books (tracked audio sources),
// clips (sliced sub-segments), listening sessions, and the content
// fingerprint used for import deduplication. It also hosts the error
// taxonomy every orchestration operation reports through.
package library
