package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"earmark/internal/library"
)

// Reader probes audio files with ffprobe for embedded tags and duration.
type Reader struct {
	binary string
	runner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewReader creates a metadata reader using the given ffprobe binary.
func NewReader(binary string) *Reader {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Reader{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Reader) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	r.runner = runner
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType   string            `json:"codec_type"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

type probeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

// Read probes the file at path and returns its embedded metadata. A file
// without an audio stream is rejected; missing tags are left empty.
func (r *Reader) Read(ctx context.Context, path string) (library.TrackMetadata, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return library.TrackMetadata{}, errors.New("metadata read: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := r.run(ctx, args)
	if err != nil {
		return library.TrackMetadata{}, err
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return library.TrackMetadata{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	hasAudio := false
	hasArt := false
	for _, stream := range result.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "audio":
			hasAudio = true
		case "video":
			if stream.Disposition["attached_pic"] == 1 {
				hasArt = true
			}
		}
	}
	if !hasAudio {
		return library.TrackMetadata{}, fmt.Errorf("metadata read: %s has no audio stream", path)
	}

	meta := library.TrackMetadata{
		Title:      tagValue(result.Format.Tags, "title"),
		Artist:     firstTagValue(result.Format.Tags, "artist", "album_artist", "author"),
		DurationMS: parseDurationMS(result.Format.Duration),
	}
	if hasArt {
		meta.Artwork = "embedded"
	}
	return meta, nil
}

func (r *Reader) run(ctx context.Context, args []string) ([]byte, error) {
	if r.runner != nil {
		return r.runner(ctx, r.binary, args...)
	}
	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func tagValue(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstTagValue(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := tagValue(tags, key); v != "" {
			return v
		}
	}
	return ""
}

func parseDurationMS(value string) int64 {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}
