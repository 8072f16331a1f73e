package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// credentialsBlob mirrors the JSON document kept in the secret store that
// originally held the upstream connection settings.
type credentialsBlob struct {
	URL      string `json:"url"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeUpstream(); err != nil {
		return err
	}
	c.normalizeSchedule()
	c.normalizeNotifications()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpstream() error {
	if value, ok := os.LookupEnv("LUNCH_API_CREDENTIALS"); ok && strings.TrimSpace(value) != "" {
		var blob credentialsBlob
		if err := json.Unmarshal([]byte(value), &blob); err != nil {
			return fmt.Errorf("LUNCH_API_CREDENTIALS: %w", err)
		}
		if c.Upstream.BaseURL == "" {
			c.Upstream.BaseURL = blob.URL
		}
		if c.Upstream.Login == "" {
			c.Upstream.Login = blob.Login
		}
		if c.Upstream.Password == "" {
			c.Upstream.Password = blob.Password
		}
	}
	lookupEnvFallback(&c.Upstream.BaseURL, "LUNCH_API_URL")
	lookupEnvFallback(&c.Upstream.Login, "LUNCH_API_LOGIN")
	lookupEnvFallback(&c.Upstream.Password, "LUNCH_API_PASSWORD")

	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	c.Upstream.Login = strings.TrimSpace(c.Upstream.Login)
	c.Upstream.UserAgent = strings.TrimSpace(c.Upstream.UserAgent)
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = defaultUserAgent
	}
	if c.Upstream.DeliveryPlaceID == 0 {
		c.Upstream.DeliveryPlaceID = defaultDeliveryPlaceID
	}
	return nil
}

func (c *Config) normalizeSchedule() {
	slots := make([]string, 0, len(c.Schedule.Slots))
	for _, slot := range c.Schedule.Slots {
		if trimmed := strings.TrimSpace(slot); trimmed != "" {
			slots = append(slots, trimmed)
		}
	}
	c.Schedule.Slots = slots
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
}

func (c *Config) normalizeNotifications() {
	lookupEnvFallback(&c.Notifications.Topic, "NTFY_TOPIC")
	lookupEnvFallback(&c.Notifications.Token, "NTFY_TOKEN")
	c.Notifications.Topic = strings.Trim(strings.TrimSpace(c.Notifications.Topic), "/")
	c.Notifications.Token = strings.TrimSpace(c.Notifications.Token)
	c.Notifications.NtfyURL = strings.TrimRight(strings.TrimSpace(c.Notifications.NtfyURL), "/")
	if c.Notifications.NtfyURL == "" {
		c.Notifications.NtfyURL = defaultNtfyURL
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, "history.db")
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnvFallback(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}
