package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"lunchscraper/internal/schedule"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("upstream.base_url is required. Set LUNCH_API_URL env var or edit %s (create with 'lunchscraper config init')", defaultPath)
	}
	if err := validateHTTPURL(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream.base_url: %w", err)
	}
	if c.Upstream.Login == "" {
		return errors.New("upstream.login is required. Set LUNCH_API_LOGIN or LUNCH_API_CREDENTIALS")
	}
	if c.Upstream.Password == "" {
		return errors.New("upstream.password is required. Set LUNCH_API_PASSWORD or LUNCH_API_CREDENTIALS")
	}
	if c.Upstream.DeliveryPlaceID <= 0 {
		return errors.New("upstream.delivery_place_id must be positive")
	}
	if c.Upstream.RequestIntervalSeconds < 0 {
		return errors.New("upstream.request_interval_seconds must be zero or positive")
	}
	if c.Upstream.RequestTimeoutSeconds < 0 {
		return errors.New("upstream.request_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := schedule.ParseSlots(c.Schedule.Slots); err != nil {
		return fmt.Errorf("schedule.slots: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Schedule.DaysAhead < 0 {
		return errors.New("schedule.days_ahead must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.Topic == "" {
		return nil
	}
	if err := validateHTTPURL(c.Notifications.NtfyURL); err != nil {
		return fmt.Errorf("notifications.ntfy_url: %w", err)
	}
	if strings.Contains(c.Notifications.Topic, "/") {
		return errors.New("notifications.topic must not contain '/'")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
