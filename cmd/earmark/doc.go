// Command earmark is the command line surface of the audio library manager:
// importing and deduplicating books, slicing clips, driving MPD playback,
// recording listening sessions, and running the sync and transcription
// workers.
package main
