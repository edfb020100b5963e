// Package metadata reads embedded tags and duration from audio files via
// ffprobe's JSON output.
package metadata
