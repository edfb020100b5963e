// Package player owns the single playback stream: a state machine over an
// audio engine that tracks status, position, and the identifier of whichever
// caller last took control.
package player
