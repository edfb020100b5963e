package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"earmark/internal/config"
)

const userAgent = "Earmark-Go/0.1.0"

// Service pushes library events to the user's devices. Every method is
// best-effort; callers log failures instead of propagating them, because a
// missed notification never invalidates the work it describes.
type Service interface {
	NotifyBookImported(ctx context.Context, title string) error
	NotifyBookRestored(ctx context.Context, title string) error
	NotifyTranscriptionCompleted(ctx context.Context, clipID, excerpt string) error
	NotifyError(ctx context.Context, err error, operation string) error
	Test(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, and a noop implementation otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.NtfyTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBookImported(ctx context.Context, title string) error {
	return n.send(ctx, message{
		title: "Earmark - Imported",
		body:  fmt.Sprintf("Added to library: %s", strings.TrimSpace(title)),
		tags:  []string{"earmark", "import", "completed"},
	})
}

func (n *ntfyService) NotifyBookRestored(ctx context.Context, title string) error {
	return n.send(ctx, message{
		title: "Earmark - Restored",
		body:  fmt.Sprintf("Archived book restored: %s", strings.TrimSpace(title)),
		tags:  []string{"earmark", "import", "restored"},
	})
}

func (n *ntfyService) NotifyTranscriptionCompleted(ctx context.Context, clipID, excerpt string) error {
	body := fmt.Sprintf("Clip %s transcribed", strings.TrimSpace(clipID))
	if excerpt = strings.TrimSpace(excerpt); excerpt != "" {
		body = fmt.Sprintf("%s\n%s", body, excerpt)
	}
	return n.send(ctx, message{
		title: "Earmark - Transcribed",
		body:  body,
		tags:  []string{"earmark", "transcribe", "completed"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, operation string) error {
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	body := fmt.Sprintf("Error: %s", detail)
	if operation = strings.TrimSpace(operation); operation != "" {
		body = fmt.Sprintf("Error during %s: %s", operation, detail)
	}
	return n.send(ctx, message{
		title:    "Earmark - Error",
		body:     body,
		tags:     []string{"earmark", "error"},
		priority: "high",
	})
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, message{
		title: "Earmark - Test",
		body:  "Notifications are configured correctly.",
		tags:  []string{"earmark", "test"},
	})
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: %s", resp.Status)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyBookImported(context.Context, string) error { return nil }

func (noopService) NotifyBookRestored(context.Context, string) error { return nil }

func (noopService) NotifyTranscriptionCompleted(context.Context, string, string) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) Test(context.Context) error { return nil }
