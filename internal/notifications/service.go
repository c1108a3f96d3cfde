package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adrescue/internal/config"
)

const userAgent = "adrescue/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyBatchCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error
	NotifyRecoveryCompleted(ctx context.Context, creativeID, uploadURL string) error
	NotifyReviewNeeded(ctx context.Context, creativeID, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
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

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "adrescue - Batch Started",
		message: fmt.Sprintf("Recovering %d disapproved creatives", count),
		tags:    []string{"adrescue", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "adrescue - Batch Complete"
		message = fmt.Sprintf("Batch complete: %d recovered in %s", succeeded, duration)
	} else {
		title = "adrescue - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch complete: %d recovered, %d failed in %s", succeeded, failed, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"adrescue", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecoveryCompleted(ctx context.Context, creativeID, uploadURL string) error {
	creativeID = strings.TrimSpace(creativeID)
	message := fmt.Sprintf("Replacement registered: %s", creativeID)
	if uploadURL = strings.TrimSpace(uploadURL); uploadURL != "" {
		message = fmt.Sprintf("%s\n%s", message, uploadURL)
	}
	data := payload{
		title:   "adrescue - Recovered",
		message: message,
		tags:    []string{"adrescue", "recovery", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, creativeID, reason string) error {
	data := payload{
		title:   "adrescue - Review Needed",
		message: fmt.Sprintf("Could not process: %s\n%s", strings.TrimSpace(creativeID), strings.TrimSpace(reason)),
		tags:    []string{"adrescue", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "adrescue - Error",
		message:  builder.String(),
		tags:     []string{"adrescue", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "adrescue - Test",
		message:  "Notification system test",
		tags:     []string{"adrescue", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyRecoveryCompleted(context.Context, string, string) error       { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error            { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
