// Package slicer materializes clip audio: it cuts a time range out of a
// source file into a standalone file via ffmpeg stream copy.
package slicer
