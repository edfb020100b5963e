// Package deps reports the availability of the external binaries earmark
// shells out to. Nothing here is required to open the library; the checks
// exist so `earmark status` can explain why imports, clips, or
// transcriptions would fail before the user hits the failure.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"earmark/internal/config"
)

// Requirement names an external binary and the feature that needs it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolves to a runnable binary.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements returns the binaries the configured feature set relies on.
// Whisper is optional: the library works without transcripts.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "ffprobe", Command: cfg.FFprobeBinary(), Description: "reads duration and tags during import"},
		{Name: "ffmpeg", Command: cfg.FFmpegBinary(), Description: "slices clip audio"},
		{Name: "whisper", Command: cfg.WhisperBinary(), Description: "transcribes clips", Optional: true},
	}
}

// Check resolves each requirement against PATH and reports the result.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch {
		case req.Command == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(req.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
