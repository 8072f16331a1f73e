package testsupport

import (
	"path/filepath"
	"testing"

	"lunchscraper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Upstream pacing is disabled so tests never sleep between requests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Upstream.BaseURL = "http://127.0.0.1:0"
	cfgVal.Upstream.Login = "test-login"
	cfgVal.Upstream.Password = "test-password"
	cfgVal.Upstream.RequestIntervalSeconds = 0
	cfgVal.Schedule.Timezone = "UTC"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithUpstreamURL points the upstream client at a test server.
func WithUpstreamURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upstream.BaseURL = url
	}
}

// WithNotifications enables ntfy delivery against the given server.
func WithNotifications(url, topic, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyURL = url
		b.cfg.Notifications.Topic = topic
		b.cfg.Notifications.Token = token
	}
}

// WithSlots overrides the configured time slots.
func WithSlots(slots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.Slots = append([]string(nil), slots...)
	}
}

// WithContinueOnError enables per-slot failure isolation.
func WithContinueOnError() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scraper.ContinueOnError = true
	}
}

// WithHistoryDisabled turns off the run ledger.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
