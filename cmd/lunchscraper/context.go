package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lunchscraper/internal/config"
	"lunchscraper/internal/jobrun"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/schedule"
)

type commandContext struct {
	configFlag *string
	logLevel   *string
	logOutputs *[]string
	verbose    *bool

	// now is swapped in tests to pin the default target date.
	now func() time.Time

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		now:        time.Now,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) resolvedLogLevel() string {
	if c.verbose != nil && *c.verbose {
		return "debug"
	}
	if c.logLevel == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevel)
}

// logger builds the stderr + lunchscraper.log logger used outside of runs.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	scoped := *cfg
	if level := c.resolvedLogLevel(); level != "" {
		scoped.Logging.Level = level
	}
	return logging.NewFromConfig(&scoped)
}

func (c *commandContext) consoleOutputs() []string {
	if c.logOutputs == nil {
		return nil
	}
	return *c.logOutputs
}

// targetDate resolves --date against the configured time zone, defaulting to
// the configured days-ahead offset.
func (c *commandContext) targetDate(value string) (*config.Config, schedule.TargetDate, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, schedule.TargetDate{}, err
	}
	date, err := jobrun.ResolveDate(cfg, value, c.now())
	if err != nil {
		return nil, schedule.TargetDate{}, err
	}
	return cfg, date, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
