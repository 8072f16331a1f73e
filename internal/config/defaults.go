package config

import "lunchscraper/internal/schedule"

const (
	defaultConfigPath             = "~/.config/lunchscraper/config.toml"
	defaultDataDir                = "data"
	defaultStateDir               = "~/.local/share/lunchscraper"
	defaultDeliveryPlaceID        = 1203
	defaultRequestIntervalSeconds = 2
	defaultUserAgent              = "lunchscraper/dev"
	defaultTimezone               = "Local"
	defaultDaysAhead              = 1
	defaultNtfyURL                = "https://ntfy.sh"
	defaultNotifyRequestTimeout   = 10
	defaultHistoryEnabled         = true
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			StateDir: defaultStateDir,
		},
		Upstream: Upstream{
			DeliveryPlaceID:        defaultDeliveryPlaceID,
			RequestIntervalSeconds: defaultRequestIntervalSeconds,
			UserAgent:              defaultUserAgent,
		},
		Schedule: Schedule{
			Slots:     append([]string(nil), schedule.DefaultSlots...),
			Timezone:  defaultTimezone,
			DaysAhead: defaultDaysAhead,
		},
		Notifications: Notifications{
			NtfyURL:        defaultNtfyURL,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
