package preflight

import (
	"context"
	"strings"

	"lunchscraper/internal/config"
)

// CheckUpstreamFromConfig runs CheckUpstream with the configured credentials.
func CheckUpstreamFromConfig(ctx context.Context, cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "Upstream API", Detail: "Unknown"}
	}
	return CheckUpstream(ctx, cfg.Upstream.BaseURL, cfg.Upstream.Login, cfg.Upstream.Password)
}

// CheckNotificationsFromConfig passes with "Disabled" when no topic is set.
func CheckNotificationsFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.Topic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	check := CheckNtfy(ctx, cfg.Notifications.NtfyURL)
	if check.Passed && strings.TrimSpace(cfg.Notifications.Token) == "" {
		check.Detail += " (no token; publishing anonymously)"
	}
	return check
}
