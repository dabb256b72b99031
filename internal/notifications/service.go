package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coverfill/internal/catalog"
	"coverfill/internal/config"
)

const userAgent = "coverfill/0.1.0"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyItem(ctx context.Context, item catalog.Item) error
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// RunSummary is the tally sent when a run finishes.
type RunSummary struct {
	RunID     string
	Total     int
	Completed int
	NoResults int
	Errored   int
	Duration  time.Duration
}

// SummarizeRun tallies merged results by status.
func SummarizeRun(runID string, items []catalog.Item, duration time.Duration) RunSummary {
	summary := RunSummary{RunID: runID, Total: len(items), Duration: duration}
	for _, item := range items {
		switch item.Status {
		case catalog.StatusCompleted:
			summary.Completed++
		case catalog.StatusNoResults:
			summary.NoResults++
		case catalog.StatusErrored:
			summary.Errored++
		}
	}
	return summary
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
		toggles:  cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	attach   string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) NotifyItem(ctx context.Context, item catalog.Item) error {
	if !n.toggles.Items {
		return nil
	}
	data := payload{
		title:   "coverfill - " + item.Label(),
		message: ItemMessage(item),
		tags:    []string{"coverfill", "game", "completed"},
		attach:  strings.TrimSpace(item.CoverURL),
	}
	return n.send(ctx, data)
}

// ItemMessage renders the announcement for one item: an optional cover URL,
// the headline, then the name followed by genre, size, and year when known.
func ItemMessage(item catalog.Item) string {
	var b strings.Builder
	if cover := strings.TrimSpace(item.CoverURL); cover != "" {
		b.WriteString(cover)
		b.WriteString("\n\n")
	}
	b.WriteString("🌟🌟🌟 ESTRENO 🌟🌟🌟\n")
	fmt.Fprintf(&b, "NOMBRE: %s\n", item.Name)
	if genre := item.ExtraValue("género", "genero", "genre"); genre != "" {
		fmt.Fprintf(&b, "GÉNERO: %s\n", genre)
	}
	if size := item.ExtraValue("tamaño", "tamano", "size"); size != "" {
		fmt.Fprintf(&b, "TAMAÑO: %s\n", size)
	}
	if year := strings.TrimSpace(item.ReleaseYear); year != "" {
		fmt.Fprintf(&b, "AÑO: %s", year)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if !n.toggles.RunSummary {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "coverfill - Run Complete"
	if summary.Errored > 0 {
		title = "coverfill - Run Complete (with errors)"
	}
	message := fmt.Sprintf("Processed %d games in %s: %d with cover, %d without results, %d errored",
		summary.Total, duration, summary.Completed, summary.NoResults, summary.Errored)
	if summary.RunID != "" {
		message += "\nRun: " + summary.RunID
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"coverfill", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.toggles.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "coverfill - Error",
		message:  builder.String(),
		tags:     []string{"coverfill", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "coverfill - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"coverfill", "test"},
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
	if data.attach != "" {
		req.Header.Set("Attach", data.attach)
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

func (noopService) NotifyItem(context.Context, catalog.Item) error       { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
