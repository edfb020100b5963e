package transcribe

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"earmark/internal/library"
	"earmark/internal/logging"
	"earmark/internal/testsupport"
)

type recordsStub struct {
	texts map[string]string
	err   error
}

func (r *recordsStub) SetClipTranscription(_ context.Context, id, text string) error {
	if r.err != nil {
		return r.err
	}
	if r.texts == nil {
		r.texts = map[string]string{}
	}
	r.texts[id] = text
	return nil
}

func mustOpenQueue(t *testing.T) *Queue {
	t.Helper()
	queue, err := Open(filepath.Join(t.TempDir(), "transcribe.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = queue.Close() })
	return queue
}

func newWorker(t *testing.T, queue *Queue, records Records) *Worker {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.TranscribeMaxAttempts = 2
	return NewWorker(cfg, queue, records, logging.NewNop())
}

func TestEnqueueResetsExistingJob(t *testing.T) {
	queue := mustOpenQueue(t)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, "clip-1", "/clips/a.mp3"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	jobs, _ := queue.Pending(ctx, 5, 0)
	if err := queue.MarkFailed(ctx, jobs[0].ID, errors.New("boom")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// Re-slicing the clip points the job at the new file and clears attempts.
	if err := queue.Enqueue(ctx, "clip-1", "/clips/a-v2.mp3"); err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}

	jobs, err := queue.Pending(ctx, 5, 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].URI != "/clips/a-v2.mp3" || jobs[0].Attempts != 0 || jobs[0].LastError != "" {
		t.Errorf("job not reset: %+v", jobs[0])
	}
}

func TestRemoveDropsJob(t *testing.T) {
	queue := mustOpenQueue(t)
	ctx := context.Background()

	_ = queue.Enqueue(ctx, "clip-1", "/clips/a.mp3")
	if err := queue.Remove(ctx, "clip-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	depth, _ := queue.Depth(ctx)
	if depth != 0 {
		t.Errorf("depth = %d, want 0", depth)
	}
	if err := queue.Remove(ctx, "clip-1"); err != nil {
		t.Fatalf("Remove missing should be nil, got %v", err)
	}
}

func TestProcessOnceStoresTranscript(t *testing.T) {
	queue := mustOpenQueue(t)
	records := &recordsStub{}
	worker := newWorker(t, queue, records)

	var ranFile string
	worker.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "-f" && i+1 < len(args) {
				ranFile = args[i+1]
			}
		}
		return []byte("  And so the story begins.\n"), nil
	})

	ctx := context.Background()
	_ = queue.Enqueue(ctx, "clip-1", "/clips/a.mp3")

	processed, err := worker.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if ranFile != "/clips/a.mp3" {
		t.Errorf("whisper ran over %q", ranFile)
	}
	if got := records.texts["clip-1"]; got != "And so the story begins." {
		t.Errorf("stored transcript = %q", got)
	}

	depth, _ := queue.Depth(ctx)
	if depth != 0 {
		t.Errorf("depth = %d after success, want 0", depth)
	}
}

func TestProcessOnceRetriesThenExhausts(t *testing.T) {
	queue := mustOpenQueue(t)
	worker := newWorker(t, queue, &recordsStub{})
	worker.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("model not loaded")
	})

	ctx := context.Background()
	_ = queue.Enqueue(ctx, "clip-1", "/clips/a.mp3")

	for i := 0; i < 2; i++ {
		processed, err := worker.ProcessOnce(ctx)
		if err != nil {
			t.Fatalf("ProcessOnce pass %d: %v", i, err)
		}
		if processed != 0 {
			t.Errorf("processed = %d on pass %d, want 0", processed, i)
		}
	}

	// Two failures hit the attempt cap; the job stops being offered.
	jobs, _ := queue.Pending(ctx, 2, 0)
	if len(jobs) != 0 {
		t.Errorf("exhausted job still pending: %+v", jobs)
	}
	depth, _ := queue.Depth(ctx)
	if depth != 1 {
		t.Errorf("depth = %d, want 1", depth)
	}
}

func TestProcessOnceDropsJobWhenClipGone(t *testing.T) {
	queue := mustOpenQueue(t)
	records := &recordsStub{err: library.Wrap(library.ErrNotFound, "store", "set clip transcription", "clip-1", nil)}
	worker := newWorker(t, queue, records)
	worker.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("text"), nil
	})

	ctx := context.Background()
	_ = queue.Enqueue(ctx, "clip-1", "/clips/a.mp3")

	if _, err := worker.ProcessOnce(ctx); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	depth, _ := queue.Depth(ctx)
	if depth != 0 {
		t.Errorf("job for deleted clip should be dropped, depth = %d", depth)
	}
}

type notifierStub struct {
	clipIDs  []string
	excerpts []string
	err      error
}

func (n *notifierStub) NotifyTranscriptionCompleted(_ context.Context, clipID, excerpt string) error {
	n.clipIDs = append(n.clipIDs, clipID)
	n.excerpts = append(n.excerpts, excerpt)
	return n.err
}

func TestProcessOnceNotifiesOnSuccess(t *testing.T) {
	queue := mustOpenQueue(t)
	records := &recordsStub{}
	worker := newWorker(t, queue, records)
	worker.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(strings.Repeat("a very long transcript ", 20)), nil
	})
	notifier := &notifierStub{err: errors.New("ntfy unreachable")}
	worker.WithNotifier(notifier)

	ctx := context.Background()
	_ = queue.Enqueue(ctx, "clip-1", "/clips/a.mp3")

	// A failed push never fails the pass; the transcript is already stored.
	processed, err := worker.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if len(notifier.clipIDs) != 1 || notifier.clipIDs[0] != "clip-1" {
		t.Fatalf("notified clips = %v", notifier.clipIDs)
	}
	if got := notifier.excerpts[0]; len(got) > 123 || !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt not trimmed: %q", got)
	}
}

func TestTranscribeRejectsEmptyOutput(t *testing.T) {
	queue := mustOpenQueue(t)
	worker := newWorker(t, queue, &recordsStub{})
	worker.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("   \n"), nil
	})

	_, err := worker.transcribe(context.Background(), "/clips/a.mp3")
	if err == nil || !strings.Contains(err.Error(), "no text") {
		t.Fatalf("expected empty-output error, got %v", err)
	}
}
