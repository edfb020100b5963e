package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"earmark/internal/config"
	"earmark/internal/logging"
)

const userAgent = "Earmark-Go/0.1.0"

// Drainer uploads queued changes to the configured sync endpoint. When no
// endpoint is configured the drainer is inert and Run returns immediately.
type Drainer struct {
	queue        *Queue
	endpoint     string
	client       *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// wireChange is the upload body for a single change.
type wireChange struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Operation  string          `json:"operation"`
	QueuedAt   string          `json:"queued_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewDrainer builds a drainer from configuration.
func NewDrainer(cfg *config.Config, queue *Queue, logger *slog.Logger) *Drainer {
	timeout := time.Duration(cfg.SyncTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	poll := time.Duration(cfg.SyncPollSeconds) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}
	attempts := cfg.SyncMaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &Drainer{
		queue:        queue,
		endpoint:     strings.TrimSpace(cfg.SyncEndpoint),
		client:       &http.Client{Timeout: timeout},
		logger:       logging.NewComponentLogger(logger, "sync"),
		pollInterval: poll,
		maxAttempts:  attempts,
	}
}

// Enabled reports whether a sync endpoint is configured.
func (d *Drainer) Enabled() bool {
	return d.endpoint != ""
}

// Run drains the queue on an interval until the context is canceled.
func (d *Drainer) Run(ctx context.Context) error {
	if !d.Enabled() {
		d.logger.Info("sync endpoint not configured, drainer disabled")
		return nil
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if delivered, err := d.DrainOnce(ctx); err != nil {
			d.logger.Warn("sync pass failed", logging.Error(err))
		} else if delivered > 0 {
			d.logger.Info("sync pass complete", logging.Int("delivered", delivered))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce uploads every pending change once, returning how many were
// delivered. A delivery failure bumps the change's attempt counter and moves
// on; the change is retried on the next pass until attempts run out.
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	if !d.Enabled() {
		return 0, nil
	}

	pending, err := d.queue.Pending(ctx, d.maxAttempts, 0)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, change := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.deliver(ctx, change); err != nil {
			d.logger.Warn("change delivery failed",
				logging.Int64("change_id", change.ID),
				logging.String("entity", change.EntityType),
				logging.String("operation", change.Operation),
				logging.Int("attempts", change.Attempts+1),
				logging.Error(err))
			if markErr := d.queue.MarkFailed(ctx, change.ID, err); markErr != nil {
				return delivered, markErr
			}
			continue
		}
		if err := d.queue.MarkDone(ctx, change.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

func (d *Drainer) deliver(ctx context.Context, change Change) error {
	wire := wireChange{
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Operation:  change.Operation,
		QueuedAt:   change.QueuedAt.UTC().Format(time.RFC3339Nano),
	}
	if change.Payload != "" {
		wire.Payload = json.RawMessage(change.Payload)
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post change: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
