package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"lunchscraper/internal/config"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/services"
)

const (
	restaurantsPath = "/employees/api/v3/menu_categories"
	menuItemsPath   = "/employees/api/v4/menu_items"
	menuFilterParam = "q[menu_category_id_in_id_array]"

	maxErrorBody = 2048
)

// StatusError reports a non-success HTTP status from the upstream API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, body)
}

// Client talks to the meal-ordering API with basic auth. All calls share one
// limiter, so consecutive requests are spaced by at least the configured
// request interval.
type Client struct {
	http            *resty.Client
	limiter         *rate.Limiter
	deliveryPlaceID int
	logger          *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "upstream")
	}
}

// WithLimiter replaces the request limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// New builds a client from the injected configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "upstream", "init", "config is required", nil)
	}
	base := strings.TrimSpace(cfg.Upstream.BaseURL)
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upstream", "init", "upstream.base_url is not configured", nil)
	}

	httpClient := resty.New().
		SetBaseURL(base).
		SetBasicAuth(cfg.Upstream.Login, cfg.Upstream.Password).
		SetHeader("User-Agent", cfg.Upstream.UserAgent).
		SetHeader("Accept", "application/json")
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		httpClient.SetTimeout(timeout)
	}

	c := &Client{
		http:            httpClient,
		limiter:         NewLimiter(cfg.RequestInterval()),
		deliveryPlaceID: cfg.Upstream.DeliveryPlaceID,
		logger:          logging.NewComponentLogger(nil, "upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	httpClient.SetLogger(logging.NewPrintfLogger(c.logger))
	return c, nil
}

// NewLimiter returns a token bucket releasing one request per interval. A
// non-positive interval disables pacing.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (c *Client) get(ctx context.Context, stage, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: wait for request slot: %w", stage, err)
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: GET %s: %w", stage, path, ctxErr)
		}
		if isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, stage, "GET "+path, "request timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stage, "GET "+path, "request failed", err)
	}

	code := resp.StatusCode()
	logging.WithContext(ctx, c.logger).Debug("upstream request",
		logging.String("path", path),
		logging.String("query", params.Encode()),
		logging.Int("status", code),
		logging.Duration("request_duration", time.Since(started)),
	)

	if code < 200 || code >= 300 {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		statusErr := &StatusError{Method: "GET", Path: path, Code: code, Body: string(body)}
		return nil, services.Wrap(services.ErrExternalTool, stage, "GET "+path, fmt.Sprintf("status %d", code), statusErr)
	}
	return resp.Body(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
