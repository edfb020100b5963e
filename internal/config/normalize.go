package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.MPDAddress = strings.TrimSpace(c.MPDAddress)
	c.SyncEndpoint = strings.TrimSpace(c.SyncEndpoint)
	c.WhisperModel = strings.TrimSpace(c.WhisperModel)
	c.NtfyTopic = strings.TrimSpace(c.NtfyTopic)
	if c.FingerprintSampleBytes <= 0 {
		c.FingerprintSampleBytes = defaultFingerprintSampleBytes
	}
	if c.DefaultClipDurationMS <= 0 {
		c.DefaultClipDurationMS = defaultClipDurationMS
	}
	if c.MinSessionDurationMS <= 0 {
		c.MinSessionDurationMS = defaultMinSessionDurationMS
	}
	if c.SyncTimeoutSeconds <= 0 {
		c.SyncTimeoutSeconds = defaultSyncTimeoutSeconds
	}
	if c.SyncPollSeconds <= 0 {
		c.SyncPollSeconds = defaultSyncPollSeconds
	}
	if c.SyncMaxAttempts <= 0 {
		c.SyncMaxAttempts = defaultSyncMaxAttempts
	}
	if c.TranscribePollSeconds <= 0 {
		c.TranscribePollSeconds = defaultTranscribePollSeconds
	}
	if c.TranscribeMaxAttempts <= 0 {
		c.TranscribeMaxAttempts = defaultTranscribeMaxAttempts
	}
	if c.NtfyTimeoutSeconds <= 0 {
		c.NtfyTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []*string{&c.LibraryDir, &c.ClipsDir, &c.StateDir, &c.LogDir}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}
