package config

const (
	defaultLibraryDir             = "~/.local/share/earmark/library"
	defaultClipsDir               = "~/.local/share/earmark/clips"
	defaultStateDir               = "~/.local/share/earmark/state"
	defaultLogDir                 = "~/.local/share/earmark/logs"
	defaultMPDAddress             = "127.0.0.1:6600"
	defaultFingerprintSampleBytes = 64 * 1024
	defaultClipDurationMS         = 20_000
	defaultMinSessionDurationMS   = 30_000
	defaultSyncTimeoutSeconds     = 10
	defaultSyncPollSeconds        = 30
	defaultSyncMaxAttempts        = 5
	defaultWhisperModel           = "base"
	defaultTranscribePollSeconds  = 15
	defaultTranscribeMaxAttempts  = 3
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			ClipsDir:   defaultClipsDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Playback: Playback{
			MPDAddress: defaultMPDAddress,
		},
		Ingest: Ingest{
			FingerprintSampleBytes: defaultFingerprintSampleBytes,
		},
		Clips: Clips{
			DefaultClipDurationMS: defaultClipDurationMS,
		},
		Sessions: Sessions{
			MinSessionDurationMS: defaultMinSessionDurationMS,
		},
		Sync: Sync{
			SyncTimeoutSeconds: defaultSyncTimeoutSeconds,
			SyncPollSeconds:    defaultSyncPollSeconds,
			SyncMaxAttempts:    defaultSyncMaxAttempts,
		},
		Transcription: Transcription{
			WhisperModel:          defaultWhisperModel,
			TranscribePollSeconds: defaultTranscribePollSeconds,
			TranscribeMaxAttempts: defaultTranscribeMaxAttempts,
		},
		Notifications: Notifications{
			NtfyTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			LogFormat: defaultLogFormat,
			LogLevel:  defaultLogLevel,
		},
	}
}
