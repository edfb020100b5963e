package slicer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Service slices byte ranges of audio into standalone files with ffmpeg.
type Service struct {
	binary string
	runner func(ctx context.Context, name string, args ...string) error
}

// Request describes a single slice operation.
type Request struct {
	SourceURI string
	StartMS   int64
	EndMS     int64
	OutputURI string
}

// NewService creates a slicer using the given ffmpeg binary.
func NewService(binary string) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Service{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.runner = runner
}

// Slice extracts [StartMS, EndMS) from the source into OutputURI and returns
// the output path. The audio stream is copied without re-encoding.
func (s *Service) Slice(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.SourceURI) == "" {
		return "", errors.New("slice: empty source")
	}
	if strings.TrimSpace(req.OutputURI) == "" {
		return "", errors.New("slice: empty output")
	}
	if req.StartMS < 0 {
		return "", fmt.Errorf("slice: negative start %d", req.StartMS)
	}
	if req.EndMS <= req.StartMS {
		return "", fmt.Errorf("slice: empty range [%d, %d)", req.StartMS, req.EndMS)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputURI), 0o755); err != nil {
		return "", fmt.Errorf("slice: ensure output directory: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(req.StartMS),
		"-t", formatSeconds(req.EndMS - req.StartMS),
		"-i", req.SourceURI,
		"-map", "0:a:0",
		"-vn",
		"-c", "copy",
		req.OutputURI,
	}
	if err := s.run(ctx, args); err != nil {
		return "", err
	}
	return req.OutputURI, nil
}

// Cleanup removes a previously sliced file. A missing file is not an error.
func (s *Service) Cleanup(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return nil
	}
	if err := os.Remove(uri); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cleanup %s: %w", filepath.Base(uri), err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, args []string) error {
	if s.runner != nil {
		return s.runner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg slice: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func formatSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}
