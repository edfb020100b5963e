package player

import "context"

// Status is the playback controller's externally visible state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
)

// TrackInfo carries display metadata handed to the engine on load.
type TrackInfo struct {
	Title   string
	Artist  string
	Artwork string
}

// EngineStatus is a raw status tick published by the audio engine.
type EngineStatus struct {
	Playing    bool
	PositionMS int64
}

// Engine is the audio backend owning the single playback stream. Exactly one
// stream is loaded at a time; Load replaces any previous stream.
type Engine interface {
	Load(ctx context.Context, uri string, meta TrackInfo) (durationMS int64, err error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMS int64) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (EngineStatus, error)
}

// Resolver maps a file URI to the display metadata of its owning record.
// Implementations return an error wrapping library.ErrNotFound when no
// record owns the URI.
type Resolver interface {
	TrackForURI(ctx context.Context, uri string) (TrackInfo, error)
}
