package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"earmark/internal/config"
	"earmark/internal/logging"
)

// Records is the slice of the record store the worker writes transcripts to.
type Records interface {
	SetClipTranscription(ctx context.Context, id, text string) error
}

// Notifier receives a push when a transcript lands. Delivery failures are
// logged, never propagated.
type Notifier interface {
	NotifyTranscriptionCompleted(ctx context.Context, clipID, excerpt string) error
}

// Worker drains the transcription queue by running the whisper binary over
// each clip file and storing the resulting text.
type Worker struct {
	queue       *Queue
	records     Records
	logger      *slog.Logger
	binary      string
	model       string
	poll        time.Duration
	maxAttempts int
	notifier    Notifier

	runner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWorker builds a transcription worker from configuration.
func NewWorker(cfg *config.Config, queue *Queue, records Records, logger *slog.Logger) *Worker {
	poll := time.Duration(cfg.TranscribePollSeconds) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}
	attempts := cfg.TranscribeMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Worker{
		queue:       queue,
		records:     records,
		logger:      logging.NewComponentLogger(logger, "transcribe"),
		binary:      cfg.WhisperBinary(),
		model:       cfg.WhisperModel,
		poll:        poll,
		maxAttempts: attempts,
	}
}

// WithNotifier enables completion pushes on the worker.
func (w *Worker) WithNotifier(notifier Notifier) {
	w.notifier = notifier
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *Worker) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	w.runner = runner
}

// Run processes jobs on an interval until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if processed, err := w.ProcessOnce(ctx); err != nil {
			w.logger.Warn("transcription pass failed", logging.Error(err))
		} else if processed > 0 {
			w.logger.Info("transcription pass complete", logging.Int("transcribed", processed))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce transcribes every pending job once, returning how many
// transcripts were stored. A failed job keeps its place in the queue until
// its attempts run out.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	jobs, err := w.queue.Pending(ctx, w.maxAttempts, 0)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		text, err := w.transcribe(ctx, job.URI)
		if err != nil {
			w.logger.Warn("transcription failed",
				logging.String(logging.FieldClipID, job.ClipID),
				logging.String(logging.FieldURI, job.URI),
				logging.Int("attempts", job.Attempts+1),
				logging.Error(err))
			if markErr := w.queue.MarkFailed(ctx, job.ID, err); markErr != nil {
				return processed, markErr
			}
			continue
		}

		if err := w.records.SetClipTranscription(ctx, job.ClipID, text); err != nil {
			// The clip may have been deleted while the job waited.
			w.logger.Warn("transcript could not be stored",
				logging.String(logging.FieldClipID, job.ClipID),
				logging.Error(err))
			if markErr := w.queue.MarkDone(ctx, job.ID); markErr != nil {
				return processed, markErr
			}
			continue
		}

		if err := w.queue.MarkDone(ctx, job.ID); err != nil {
			return processed, err
		}
		w.logger.Info("clip transcribed",
			logging.String(logging.FieldClipID, job.ClipID),
			logging.Int("chars", len(text)))
		if w.notifier != nil {
			if err := w.notifier.NotifyTranscriptionCompleted(ctx, job.ClipID, excerpt(text)); err != nil {
				w.logger.Warn("transcription notification failed",
					logging.String(logging.FieldClipID, job.ClipID),
					logging.Error(err))
			}
		}
		processed++
	}
	return processed, nil
}

// excerpt trims a transcript down to a notification-sized preview.
func excerpt(text string) string {
	const limit = 120
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return strings.TrimSpace(text[:limit]) + "..."
}

func (w *Worker) transcribe(ctx context.Context, uri string) (string, error) {
	args := []string{"-m", w.model, "-f", uri, "-np", "-nt"}
	output, err := w.run(ctx, args)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "", fmt.Errorf("whisper produced no text for %s", uri)
	}
	return text, nil
}

func (w *Worker) run(ctx context.Context, args []string) ([]byte, error) {
	if w.runner != nil {
		return w.runner(ctx, w.binary, args...)
	}
	cmd := exec.CommandContext(ctx, w.binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return output, nil
}
