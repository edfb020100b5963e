package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudioFile writes placeholder audio bytes under dir and returns the path.
func WriteAudioFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()

	if len(content) == 0 {
		content = []byte("placeholder audio payload")
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for audio file: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return path
}
