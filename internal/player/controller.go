package player

import (
	"context"
	"log/slog"
	"sync"

	"earmark/internal/library"
	"earmark/internal/logging"
)

// State is a snapshot of the controller's playback state.
type State struct {
	Status     Status
	URI        string
	DurationMS int64
	PositionMS int64
	OwnerID    string
}

// Request asks the controller to play a specific file. A nil *Request means
// "resume whatever is loaded". OwnerID, when non-empty, identifies the
// logical caller taking control of the stream.
type Request struct {
	FileURI    string
	PositionMS int64
	OwnerID    string
}

// Controller is the single-owner playback state machine. Operations
// serialize on an internal mutex; engine calls happen while it is held, so
// no two operations interleave their engine interactions.
type Controller struct {
	engine   Engine
	resolver Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewController builds a controller over the given engine and record resolver.
func NewController(engine Engine, resolver Resolver, logger *slog.Logger) *Controller {
	return &Controller{
		engine:   engine,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "player"),
		state:    State{Status: StatusIdle},
	}
}

// Snapshot returns the current playback state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play starts or resumes playback. With a nil request the loaded stream
// resumes directly: no lookup, no load, no seek. With a request the
// controller loads or seeks as needed before playing; any failure leaves
// status paused when a stream is loaded and idle otherwise, never loading.
func (c *Controller) Play(ctx context.Context, req *Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req == nil {
		if err := c.engine.Play(ctx); err != nil {
			c.settleAfterFailure()
			return library.Wrap(library.ErrMedia, "player", "play", "resume failed", err)
		}
		c.state.Status = StatusPlaying
		return nil
	}

	switch {
	case req.FileURI != c.state.URI:
		track, err := c.resolver.TrackForURI(ctx, req.FileURI)
		if err != nil {
			c.settleAfterFailure()
			return err
		}

		// Owner flips before the potentially slow load so observers see who
		// is driving the stream while it spins up.
		c.state.Status = StatusLoading
		if req.OwnerID != "" {
			c.state.OwnerID = req.OwnerID
		}

		duration, err := c.engine.Load(ctx, req.FileURI, track)
		if err != nil {
			c.settleAfterFailure()
			return library.Wrap(library.ErrMedia, "player", "load", req.FileURI, err)
		}
		c.state.URI = req.FileURI
		c.state.DurationMS = duration
		c.state.PositionMS = req.PositionMS

		if err := c.engine.Seek(ctx, req.PositionMS); err != nil {
			c.settleAfterFailure()
			return library.Wrap(library.ErrMedia, "player", "seek", req.FileURI, err)
		}

	case req.PositionMS != c.state.PositionMS:
		if err := c.engine.Seek(ctx, req.PositionMS); err != nil {
			c.settleAfterFailure()
			return library.Wrap(library.ErrMedia, "player", "seek", req.FileURI, err)
		}
		c.state.PositionMS = req.PositionMS
	}

	if req.OwnerID != "" {
		c.state.OwnerID = req.OwnerID
	}
	c.state.Status = StatusPlaying
	if err := c.engine.Play(ctx); err != nil {
		c.settleAfterFailure()
		return library.Wrap(library.ErrMedia, "player", "play", req.FileURI, err)
	}
	return nil
}

// Pause halts playback, keeping the stream loaded.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusPlaying {
		return nil
	}
	if err := c.engine.Pause(ctx); err != nil {
		return library.Wrap(library.ErrMedia, "player", "pause", c.state.URI, err)
	}
	c.state.Status = StatusPaused
	return nil
}

// SeekTo moves the playhead to an absolute position.
func (c *Controller) SeekTo(ctx context.Context, positionMS int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.URI == "" {
		return library.Wrap(library.ErrMedia, "player", "seek", "no stream loaded", nil)
	}
	positionMS = clamp(positionMS, 0, c.state.DurationMS)
	if err := c.engine.Seek(ctx, positionMS); err != nil {
		return library.Wrap(library.ErrMedia, "player", "seek", c.state.URI, err)
	}
	c.state.PositionMS = positionMS
	return nil
}

// SkipBy moves the playhead relative to the current position, clamped to
// the stream bounds.
func (c *Controller) SkipBy(ctx context.Context, deltaMS int64) error {
	c.mu.Lock()
	target := clamp(c.state.PositionMS+deltaMS, 0, c.state.DurationMS)
	c.mu.Unlock()
	return c.SeekTo(ctx, target)
}

// Unload stops the engine and returns the controller to idle. The owner is
// retained; ownership only changes when a play request supplies one.
func (c *Controller) Unload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.URI == "" && c.state.Status == StatusIdle {
		return nil
	}
	if err := c.engine.Stop(ctx); err != nil {
		return library.Wrap(library.ErrMedia, "player", "unload", c.state.URI, err)
	}
	owner := c.state.OwnerID
	c.state = State{Status: StatusIdle, OwnerID: owner}
	return nil
}

// Adopt seeds the controller with a stream the engine already has loaded,
// without issuing any engine calls. Used when the process attaches to an
// engine that outlives it.
func (c *Controller) Adopt(uri string, durationMS int64, status EngineStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uri == "" {
		return
	}
	c.state.URI = uri
	c.state.DurationMS = durationMS
	c.state.PositionMS = status.PositionMS
	if status.Playing {
		c.state.Status = StatusPlaying
	} else {
		c.state.Status = StatusPaused
	}
}

// LoadedURI returns the uri of the loaded stream, empty when idle.
func (c *Controller) LoadedURI() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.URI
}

// HandleEngineStatus folds a raw engine status tick into controller state.
// Ticks that arrive while a load is in flight are dropped: an external
// status update must not overwrite an in-progress loading transition.
func (c *Controller) HandleEngineStatus(status EngineStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == StatusLoading {
		return
	}
	if c.state.URI == "" {
		return
	}
	c.state.PositionMS = status.PositionMS
	if status.Playing {
		c.state.Status = StatusPlaying
	} else if c.state.Status == StatusPlaying {
		c.state.Status = StatusPaused
	}
}

// settleAfterFailure resolves a failed transition: paused when a stream is
// loaded, idle when not. The controller never remains in loading.
func (c *Controller) settleAfterFailure() {
	if c.state.URI != "" {
		c.state.Status = StatusPaused
	} else {
		c.state.Status = StatusIdle
	}
	c.logger.Debug("playback transition failed",
		logging.String("status", string(c.state.Status)),
		logging.String(logging.FieldURI, c.state.URI))
}

func clamp(value, lo, hi int64) int64 {
	if value < lo {
		return lo
	}
	if hi > 0 && value > hi {
		return hi
	}
	return value
}
