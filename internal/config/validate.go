package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the rest of the system
// cannot work around.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.LibraryDir) == "" {
		problems = append(problems, "paths.library_dir must be set")
	}
	if strings.TrimSpace(c.ClipsDir) == "" {
		problems = append(problems, "paths.clips_dir must be set")
	}
	if strings.TrimSpace(c.StateDir) == "" {
		problems = append(problems, "paths.state_dir must be set")
	}
	if c.LibraryDir != "" && c.LibraryDir == c.ClipsDir {
		problems = append(problems, "paths.library_dir and paths.clips_dir must differ")
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.LogFormat))
	}

	if c.SyncEndpoint != "" && !strings.HasPrefix(c.SyncEndpoint, "http://") && !strings.HasPrefix(c.SyncEndpoint, "https://") {
		problems = append(problems, "sync.endpoint must be an http(s) URL")
	}
	if c.NtfyTopic != "" && !strings.HasPrefix(c.NtfyTopic, "http://") && !strings.HasPrefix(c.NtfyTopic, "https://") {
		problems = append(problems, "notifications.ntfy_topic must be a full ntfy topic URL")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
