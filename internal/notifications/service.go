package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adtrim/internal/config"
)

const userAgent = "adtrim/0.1.0"

// Service defines the notification surface used by the pipeline and watcher.
type Service interface {
	NotifyEpisodeTrimmed(ctx context.Context, episode string, adSeconds float64, parts int) error
	NotifyReviewNeeded(ctx context.Context, episode, reason string) error
	NotifyError(ctx context.Context, err error, episode string) error
	NotifyPassCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyEpisodeTrimmed(ctx context.Context, episode string, adSeconds float64, parts int) error {
	name := filepath.Base(strings.TrimSpace(episode))
	message := fmt.Sprintf("✂️ Trimmed %s: %s of ads replaced", name, formatSeconds(adSeconds))
	if adSeconds <= 0 {
		message = fmt.Sprintf("✅ No ads found in %s", name)
	}
	if parts > 1 {
		message = fmt.Sprintf("%s (%d parts)", message, parts)
	}
	return n.send(ctx, payload{
		title:   "adtrim - Episode Trimmed",
		message: message,
		tags:    []string{"adtrim", "episode", "trimmed"},
	})
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, episode, reason string) error {
	message := fmt.Sprintf("Needs review: %s", filepath.Base(strings.TrimSpace(episode)))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	return n.send(ctx, payload{
		title:   "adtrim - Review Required",
		message: message,
		tags:    []string{"adtrim", "episode", "review"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, episode string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if episode = strings.TrimSpace(episode); episode != "" {
		builder.WriteString(" with ")
		builder.WriteString(filepath.Base(episode))
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "adtrim - Error",
		message:  builder.String(),
		tags:     []string{"adtrim", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyPassCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "adtrim - Watch Pass Complete"
	message := fmt.Sprintf("Processed %d episodes in %s", processed, duration)
	if failed > 0 {
		title = "adtrim - Watch Pass Complete (with errors)"
		message = fmt.Sprintf("%d succeeded, %d failed in %s", processed, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"adtrim", "watch", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "adtrim - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"adtrim", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "s"
}

type noopService struct{}

func (noopService) NotifyEpisodeTrimmed(context.Context, string, float64, int) error   { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error           { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) NotifyPassCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
