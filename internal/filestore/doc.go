// Package filestore implements the managed-storage collaborator: copying
// imports into the library, renaming files onto their stable ids, removing
// audio idempotently, and computing content fingerprints for dedup.
package filestore
