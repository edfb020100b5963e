package slicer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSliceBuildsFFmpegArgs(t *testing.T) {
	svc := NewService("ffmpeg")
	var captured []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		captured = args
		return nil
	})

	out := filepath.Join(t.TempDir(), "clips", "clip-1.mp3")
	uri, err := svc.Slice(context.Background(), Request{
		SourceURI: "/library/book.mp3",
		StartMS:   10_000,
		EndMS:     15_250,
		OutputURI: out,
	})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if uri != out {
		t.Errorf("returned uri mismatch: %q", uri)
	}

	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "-ss 10.000") {
		t.Errorf("start offset missing: %q", joined)
	}
	if !strings.Contains(joined, "-t 5.250") {
		t.Errorf("duration missing: %q", joined)
	}
	if !strings.Contains(joined, "-c copy") {
		t.Errorf("stream copy missing: %q", joined)
	}
}

func TestSliceRejectsEmptyRange(t *testing.T) {
	svc := NewService("")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner should not be invoked for invalid request")
		return nil
	})

	_, err := svc.Slice(context.Background(), Request{
		SourceURI: "/a.mp3",
		StartMS:   5000,
		EndMS:     5000,
		OutputURI: "/out.mp3",
	})
	if err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestSlicePropagatesRunnerFailure(t *testing.T) {
	svc := NewService("")
	bang := errors.New("codec explosion")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return bang
	})

	_, err := svc.Slice(context.Background(), Request{
		SourceURI: "/a.mp3",
		StartMS:   0,
		EndMS:     100,
		OutputURI: filepath.Join(t.TempDir(), "x.mp3"),
	})
	if !errors.Is(err, bang) {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	svc := NewService("")
	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := svc.Cleanup(path); err != nil {
		t.Fatalf("Cleanup existing: %v", err)
	}
	if err := svc.Cleanup(path); err != nil {
		t.Fatalf("Cleanup missing should be nil, got %v", err)
	}
	if err := svc.Cleanup(""); err != nil {
		t.Fatalf("Cleanup empty uri should be nil, got %v", err)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[int64]string{
		0:      "0.000",
		999:    "0.999",
		1000:   "1.000",
		15_250: "15.250",
	}
	for ms, want := range cases {
		if got := formatSeconds(ms); got != want {
			t.Errorf("formatSeconds(%d) = %q, want %q", ms, got, want)
		}
	}
}
