package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for managed audio and state.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	ClipsDir   string `toml:"clips_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Playback contains configuration for the MPD-backed audio engine.
type Playback struct {
	MPDAddress string `toml:"mpd_address"`
}

// Ingest contains configuration for file import and deduplication.
type Ingest struct {
	FingerprintSampleBytes int64  `toml:"fingerprint_sample_bytes"`
	FFprobeBinaryPath      string `toml:"ffprobe_binary"`
}

// Clips contains configuration for clip slicing.
type Clips struct {
	DefaultClipDurationMS int64  `toml:"default_clip_duration_ms"`
	FFmpegBinaryPath      string `toml:"ffmpeg_binary"`
}

// Sessions contains configuration for listening session tracking.
type Sessions struct {
	MinSessionDurationMS int64 `toml:"min_session_duration_ms"`
}

// Sync contains configuration for the durable remote-sync queue.
type Sync struct {
	SyncEndpoint       string `toml:"endpoint"`
	SyncTimeoutSeconds int    `toml:"request_timeout"`
	SyncPollSeconds    int    `toml:"poll_interval"`
	SyncMaxAttempts    int    `toml:"max_attempts"`
}

// Transcription contains configuration for the clip transcription worker.
type Transcription struct {
	WhisperBinaryPath     string `toml:"whisper_binary"`
	WhisperModel          string `toml:"whisper_model"`
	TranscribePollSeconds int    `toml:"poll_interval"`
	TranscribeMaxAttempts int    `toml:"max_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	NtfyTimeoutSeconds int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	LogFormat string `toml:"format"`
	LogLevel  string `toml:"level"`
}

// Config encapsulates all configuration values for earmark.
//
// Configuration sections by subsystem:
//   - Paths: managed library, clip, state, and log directories
//   - Playback: MPD connection for the shared playback stream
//   - Ingest: fingerprint sampling and metadata probing
//   - Clips: default clip length and slicing binary
//   - Sessions: minimum listening duration worth recording
//   - Sync: remote change-intent queue endpoint and cadence
//   - Transcription: whisper binary, model, and worker cadence
//   - Notifications: optional ntfy push topic
//   - Logging: log format and level
type Config struct {
	Paths         `toml:"paths"`
	Playback      `toml:"playback"`
	Ingest        `toml:"ingest"`
	Clips         `toml:"clips"`
	Sessions      `toml:"sessions"`
	Sync          `toml:"sync"`
	Transcription `toml:"transcription"`
	Notifications `toml:"notifications"`
	Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/earmark/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates every configured directory that must exist
// before stores and file operations run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.LibraryDir, c.ClipsDir, c.StateDir, c.LogDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the record-store database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "earmark.db")
}

// SyncQueuePath returns the location of the durable sync-queue database.
func (c *Config) SyncQueuePath() string {
	return filepath.Join(c.StateDir, "sync.db")
}

// TranscriptionQueuePath returns the location of the transcription-queue database.
func (c *Config) TranscriptionQueuePath() string {
	return filepath.Join(c.StateDir, "transcribe.db")
}

// FFmpegBinary returns the configured ffmpeg binary or the PATH default.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.FFmpegBinaryPath) != "" {
		return c.FFmpegBinaryPath
	}
	return "ffmpeg"
}

// FFprobeBinary returns the configured ffprobe binary or the PATH default.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.FFprobeBinaryPath) != "" {
		return c.FFprobeBinaryPath
	}
	return "ffprobe"
}

// WhisperBinary returns the configured whisper binary or the PATH default.
func (c *Config) WhisperBinary() string {
	if strings.TrimSpace(c.WhisperBinaryPath) != "" {
		return c.WhisperBinaryPath
	}
	return "whisper"
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		if strings.HasPrefix(trimmed, "~/") {
			return filepath.Join(home, trimmed[2:]), nil
		}
		return "", fmt.Errorf("unsupported home-relative path %q", trimmed)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
