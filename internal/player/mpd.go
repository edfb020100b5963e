package player

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// MPDEngine drives playback through a Music Player Daemon instance. The
// connection is dialed lazily and re-dialed after a protocol failure.
type MPDEngine struct {
	network string
	address string

	mu     sync.Mutex
	client *mpd.Client
}

// NewMPDEngine creates an engine for the given MPD address. Addresses
// starting with "/" are treated as unix sockets, everything else as tcp.
func NewMPDEngine(address string) *MPDEngine {
	network := "tcp"
	if strings.HasPrefix(address, "/") {
		network = "unix"
	}
	return &MPDEngine{network: network, address: address}
}

// Load replaces the MPD queue with the given file and leaves it paused at
// the start, returning the stream duration reported by MPD.
func (e *MPDEngine) Load(ctx context.Context, uri string, _ TrackInfo) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.conn()
	if err != nil {
		return 0, err
	}
	if err := client.Clear(); err != nil {
		return 0, e.fail("clear queue", err)
	}
	if err := client.Add(uri); err != nil {
		return 0, e.fail("queue file", err)
	}
	if err := client.Play(-1); err != nil {
		return 0, e.fail("start stream", err)
	}
	if err := client.Pause(true); err != nil {
		return 0, e.fail("pause stream", err)
	}

	status, err := client.Status()
	if err != nil {
		return 0, e.fail("read status", err)
	}
	return secondsToMS(status["duration"]), nil
}

func (e *MPDEngine) Play(ctx context.Context) error {
	return e.command("resume", func(c *mpd.Client) error { return c.Pause(false) })
}

func (e *MPDEngine) Pause(ctx context.Context) error {
	return e.command("pause", func(c *mpd.Client) error { return c.Pause(true) })
}

func (e *MPDEngine) Seek(ctx context.Context, positionMS int64) error {
	return e.command("seek", func(c *mpd.Client) error {
		return c.SeekCur(time.Duration(positionMS)*time.Millisecond, false)
	})
}

func (e *MPDEngine) Stop(ctx context.Context) error {
	return e.command("stop", func(c *mpd.Client) error {
		if err := c.Stop(); err != nil {
			return err
		}
		return c.Clear()
	})
}

// Status reports whether MPD is playing and the elapsed position.
func (e *MPDEngine) Status(ctx context.Context) (EngineStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.conn()
	if err != nil {
		return EngineStatus{}, err
	}
	attrs, err := client.Status()
	if err != nil {
		return EngineStatus{}, e.fail("read status", err)
	}
	return EngineStatus{
		Playing:    attrs["state"] == "play",
		PositionMS: secondsToMS(attrs["elapsed"]),
	}, nil
}

// Current reports the file MPD has loaded along with its duration and the
// playback position. An empty uri means nothing is queued.
func (e *MPDEngine) Current(ctx context.Context) (string, int64, EngineStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.conn()
	if err != nil {
		return "", 0, EngineStatus{}, err
	}
	song, err := client.CurrentSong()
	if err != nil {
		return "", 0, EngineStatus{}, e.fail("read current song", err)
	}
	uri := song["file"]
	if uri == "" {
		return "", 0, EngineStatus{}, nil
	}
	attrs, err := client.Status()
	if err != nil {
		return "", 0, EngineStatus{}, e.fail("read status", err)
	}
	status := EngineStatus{
		Playing:    attrs["state"] == "play",
		PositionMS: secondsToMS(attrs["elapsed"]),
	}
	return uri, secondsToMS(attrs["duration"]), status, nil
}

// Close shuts down the MPD connection.
func (e *MPDEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func (e *MPDEngine) command(op string, fn func(*mpd.Client) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.conn()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return e.fail(op, err)
	}
	return nil
}

func (e *MPDEngine) conn() (*mpd.Client, error) {
	if e.client != nil {
		return e.client, nil
	}
	client, err := mpd.Dial(e.network, e.address)
	if err != nil {
		return nil, fmt.Errorf("mpd dial %s: %w", e.address, err)
	}
	e.client = client
	return client, nil
}

// fail drops the cached connection so the next call re-dials.
func (e *MPDEngine) fail(op string, err error) error {
	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
	}
	return fmt.Errorf("mpd %s: %w", op, err)
}

func secondsToMS(value string) int64 {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return int64(seconds * 1000)
}
