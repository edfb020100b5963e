package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"earmark/internal/config"
	"earmark/internal/library"
)

// Store manages the audio files under earmark's control: full books in the
// library directory and sliced clips in the clips directory. Callers address
// files by absolute path (their URI); the store never reaches outside its
// two directories except to read import sources.
type Store struct {
	libraryDir  string
	clipsDir    string
	sampleBytes int64
}

// New builds a file store from configuration.
func New(cfg *config.Config) *Store {
	return &Store{
		libraryDir:  cfg.LibraryDir,
		clipsDir:    cfg.ClipsDir,
		sampleBytes: cfg.FingerprintSampleBytes,
	}
}

// CopyIn copies an external source file into the library directory under the
// given base name, preserving the source extension. The copy is verified by
// size and hash; a corrupted copy is removed before the error returns.
func (s *Store) CopyIn(sourceURI, baseName string) (string, error) {
	if strings.TrimSpace(sourceURI) == "" {
		return "", errors.New("copy in: empty source")
	}
	if strings.TrimSpace(baseName) == "" {
		return "", errors.New("copy in: empty name")
	}
	dest := filepath.Join(s.libraryDir, baseName+strings.ToLower(filepath.Ext(sourceURI)))
	if err := copyFileVerified(sourceURI, dest); err != nil {
		return "", fmt.Errorf("copy %s into library: %w", filepath.Base(sourceURI), err)
	}
	return dest, nil
}

// Rename moves a managed file to a new base name in the same directory,
// keeping its extension, and returns the new URI.
func (s *Store) Rename(uri, newBase string) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", errors.New("rename: empty uri")
	}
	if strings.TrimSpace(newBase) == "" {
		return "", errors.New("rename: empty name")
	}
	dest := filepath.Join(filepath.Dir(uri), newBase+filepath.Ext(uri))
	if dest == uri {
		return uri, nil
	}
	if err := os.Rename(uri, dest); err != nil {
		return "", fmt.Errorf("rename %s: %w", filepath.Base(uri), err)
	}
	return dest, nil
}

// Remove deletes a managed file. A missing file is not an error: removal is
// used in cleanup paths that must be idempotent.
func (s *Store) Remove(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return nil
	}
	if err := os.Remove(uri); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(uri), err)
	}
	return nil
}

// ClipPath returns the URI a clip file with the given base name and source
// extension will occupy in the clips directory.
func (s *Store) ClipPath(baseName, sourceURI string) string {
	ext := filepath.Ext(sourceURI)
	if ext == "" {
		ext = ".mp3"
	}
	return filepath.Join(s.clipsDir, baseName+strings.ToLower(ext))
}

// Fingerprint computes the content-identity key for a file: its exact size
// plus a hash over bounded samples from the head and tail. Sampling keeps
// import fast on multi-hour audio while still distinguishing real content.
func (s *Store) Fingerprint(uri string) (library.Fingerprint, error) {
	info, err := os.Stat(uri)
	if err != nil {
		return library.Fingerprint{}, fmt.Errorf("stat %s: %w", filepath.Base(uri), err)
	}
	if info.IsDir() {
		return library.Fingerprint{}, fmt.Errorf("fingerprint %s: is a directory", filepath.Base(uri))
	}

	file, err := os.Open(uri)
	if err != nil {
		return library.Fingerprint{}, fmt.Errorf("open %s: %w", filepath.Base(uri), err)
	}
	defer file.Close()

	size := info.Size()
	sample := s.sampleBytes
	if sample <= 0 {
		sample = 64 * 1024
	}

	h := sha256.New()
	_, _ = io.WriteString(h, fmt.Sprintf("%d", size))
	_, _ = h.Write([]byte{0})

	if _, err := io.CopyN(h, file, min64(sample, size)); err != nil && !errors.Is(err, io.EOF) {
		return library.Fingerprint{}, fmt.Errorf("hash head of %s: %w", filepath.Base(uri), err)
	}

	if size > sample {
		if _, err := file.Seek(size-sample, io.SeekStart); err != nil {
			return library.Fingerprint{}, fmt.Errorf("seek tail of %s: %w", filepath.Base(uri), err)
		}
		if _, err := io.Copy(h, file); err != nil {
			return library.Fingerprint{}, fmt.Errorf("hash tail of %s: %w", filepath.Base(uri), err)
		}
	}

	return library.Fingerprint{
		Size: size,
		Hash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func copyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
