package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"earmark/internal/catalog"
	"earmark/internal/config"
	"earmark/internal/filestore"
	"earmark/internal/logging"
	"earmark/internal/media/metadata"
	"earmark/internal/notifications"
	"earmark/internal/media/slicer"
	"earmark/internal/player"
	"earmark/internal/store"
	"earmark/internal/syncqueue"
	"earmark/internal/transcribe"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the opened stores, queues, and services a command works
// with. Exactly one runtime exists per process; a file lock keeps a second
// earmark invocation from mutating the same library concurrently.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	syncs      *syncqueue.Queue
	trans      *transcribe.Queue
	manager    *catalog.Manager
	engine     *player.MPDEngine
	controller *player.Controller
	notifier   notifications.Service
	lock       *flock.Flock
}

func (c *commandContext) withRuntime(fn func(*runtime) error) error {
	rt, err := c.openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(rt)
}

func (c *commandContext) openRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.StateDir, "earmark.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire library lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another earmark instance holds the library lock at %s", lock.Path())
	}

	rt := &runtime{cfg: cfg, logger: logger, lock: lock}

	rt.store, err = store.Open(cfg)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open record store: %w", err)
	}
	rt.syncs, err = syncqueue.Open(cfg.SyncQueuePath())
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open sync queue: %w", err)
	}
	rt.trans, err = transcribe.Open(cfg.TranscriptionQueuePath())
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open transcription queue: %w", err)
	}

	rt.manager = catalog.NewManager(
		cfg,
		rt.store,
		filestore.New(cfg),
		metadata.NewReader(cfg.FFprobeBinary()),
		slicer.NewService(cfg.FFmpegBinary()),
		rt.syncs,
		rt.trans,
		logger,
	)
	rt.engine = player.NewMPDEngine(cfg.MPDAddress)
	rt.controller = player.NewController(rt.engine, rt.manager, logger)
	rt.manager.WithPlayback(rt.controller)
	rt.notifier = notifications.NewService(cfg)

	return rt, nil
}

func (rt *runtime) close() {
	if rt.engine != nil {
		_ = rt.engine.Close()
	}
	if rt.trans != nil {
		_ = rt.trans.Close()
	}
	if rt.syncs != nil {
		_ = rt.syncs.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
	if rt.lock != nil {
		_ = rt.lock.Unlock()
	}
}
