package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lunchscraper/internal/config"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/services"
)

const userAgent = "lunchscraper/0.1.0"

// Event identifies what happened.
type Event string

const (
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventTest         Event = "test"
)

// Payload carries event details. Recognised keys are listed next to the
// Key constants.
type Payload map[string]any

const (
	KeyDate        = "date"         // string, YYYY-MM-DD
	KeyMenuFiles   = "menu_files"   // int
	KeyFailedSlots = "failed_slots" // []string
	KeyError       = "error"        // error
)

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Option customizes the ntfy service.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sends HTTP client diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config, opts ...Option) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.Trim(strings.TrimSpace(cfg.Notifications.Topic), "/")
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Notifications.NtfyURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetLogger(logging.NewPrintfLogger(logging.NewComponentLogger(o.logger, "notifications")))
	if token := strings.TrimSpace(cfg.Notifications.Token); token != "" {
		client.SetAuthToken(token)
	}
	return &ntfyService{
		client:       client,
		topic:        topic,
		notifyErrors: cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	client       *resty.Client
	topic        string
	notifyErrors bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	switch event {
	case EventRunCompleted:
		return n.send(ctx, completedMessage(payload))
	case EventRunFailed:
		if !n.notifyErrors {
			return nil
		}
		return n.send(ctx, failedMessage(payload))
	case EventTest:
		return n.send(ctx, message{
			title:    "Lunch Tracker Scraper - Test",
			body:     "Notification system test",
			tags:     []string{"lunchscraper", "test"},
			priority: "low",
		})
	default:
		return nil
	}
}

// CompletionText is the body sent when a run finishes.
func CompletionText(date string, menuFiles int) string {
	return fmt.Sprintf("Lunch Tracker Scraper completed for %s. Found %d menu files.", date, menuFiles)
}

func completedMessage(payload Payload) message {
	body := CompletionText(payload.str(KeyDate), payload.integer(KeyMenuFiles))
	tags := []string{"lunchscraper", "completed"}
	if failed := payload.stringSlice(KeyFailedSlots); len(failed) > 0 {
		body += fmt.Sprintf(" Failed slots: %s.", strings.Join(failed, ", "))
		tags = append(tags, "partial")
	}
	return message{body: body, tags: tags}
}

func failedMessage(payload Payload) message {
	var b strings.Builder
	b.WriteString("Lunch Tracker Scraper failed")
	if date := payload.str(KeyDate); date != "" {
		b.WriteString(" for ")
		b.WriteString(date)
	}
	b.WriteString(": ")
	if err, ok := payload[KeyError].(error); ok && err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown error")
	}
	return message{
		title:    "Lunch Tracker Scraper - Error",
		body:     b.String(),
		tags:     []string{"lunchscraper", "error"},
		priority: "high",
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(msg.body)
	if msg.title != "" {
		req.SetHeader("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.SetHeader("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.SetHeader("Priority", msg.priority)
	}

	resp, err := req.Post("/" + n.topic)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "notify", "POST", "send ntfy notification", err)
	}
	if resp.StatusCode() != http.StatusOK {
		body := strings.TrimSpace(resp.String())
		if len(body) > 2048 {
			body = body[:2048]
		}
		return services.Wrap(services.ErrExternalTool, "notify", "POST",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode(), body), nil)
	}
	return nil
}

func (p Payload) str(key string) string {
	if v, ok := p[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (p Payload) integer(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) stringSlice(key string) []string {
	v, _ := p[key].([]string)
	return v
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
