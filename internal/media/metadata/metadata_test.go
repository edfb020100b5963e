package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const sampleProbe = `{
  "streams": [
    {"codec_type": "audio", "tags": {"language": "eng"}},
    {"codec_type": "video", "disposition": {"attached_pic": 1}}
  ],
  "format": {
    "duration": "3672.456000",
    "tags": {"TITLE": "Project Hail Mary", "artist": "Andy Weir"}
  }
}`

func TestReadParsesTagsAndDuration(t *testing.T) {
	reader := NewReader("ffprobe")
	reader.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Errorf("unexpected binary %q", name)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-show_format") || !strings.Contains(joined, "-show_streams") {
			t.Errorf("missing probe flags in %q", joined)
		}
		return []byte(sampleProbe), nil
	})

	meta, err := reader.Read(context.Background(), "/library/book.m4b")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if meta.Title != "Project Hail Mary" {
		t.Errorf("title: got %q", meta.Title)
	}
	if meta.Artist != "Andy Weir" {
		t.Errorf("artist: got %q", meta.Artist)
	}
	if meta.DurationMS != 3_672_456 {
		t.Errorf("duration: got %d", meta.DurationMS)
	}
	if meta.Artwork != "embedded" {
		t.Errorf("artwork: got %q", meta.Artwork)
	}
}

func TestReadRejectsFilesWithoutAudio(t *testing.T) {
	reader := NewReader("")
	reader.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"streams":[{"codec_type":"video"}],"format":{"duration":"10"}}`), nil
	})

	if _, err := reader.Read(context.Background(), "/tmp/video.mkv"); err == nil {
		t.Fatal("expected error for file without audio stream")
	}
}

func TestReadPropagatesProbeFailure(t *testing.T) {
	probeErr := errors.New("ffprobe exploded")
	reader := NewReader("")
	reader.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, probeErr
	})

	if _, err := reader.Read(context.Background(), "/tmp/x.mp3"); !errors.Is(err, probeErr) {
		t.Fatalf("expected probe error, got %v", err)
	}
}

func TestReadEmptyPath(t *testing.T) {
	reader := NewReader("")
	if _, err := reader.Read(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestParseDurationMS(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.5", 12_500},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
		{"-3", 0},
	}
	for _, tc := range cases {
		if got := parseDurationMS(tc.in); got != tc.want {
			t.Errorf("parseDurationMS(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
