package testsupport

import (
	"path/filepath"
	"testing"

	"earmark/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.LibraryDir = filepath.Join(base, "library")
	cfg.ClipsDir = filepath.Join(base, "clips")
	cfg.StateDir = filepath.Join(base, "state")
	cfg.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithMinSessionDuration overrides the session threshold on the test config.
func WithMinSessionDuration(ms int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.MinSessionDurationMS = ms
	}
}

// WithDefaultClipDuration overrides the default clip length on the test config.
func WithDefaultClipDuration(ms int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.DefaultClipDurationMS = ms
	}
}
