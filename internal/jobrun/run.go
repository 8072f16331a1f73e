package jobrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lunchscraper/internal/config"
	"lunchscraper/internal/history"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/notifications"
	"lunchscraper/internal/preflight"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/scraper"
	"lunchscraper/internal/services"
	"lunchscraper/internal/storage"
	"lunchscraper/internal/upstream"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another scrape run is in progress")

// Options configures a single run.
type Options struct {
	LogLevel        string
	Development     bool
	Date            string
	Slots           []string
	ContinueOnError bool
	Preflight       bool
	// Now overrides the clock used to compute the default target date.
	Now func() time.Time
	// Console receives human-readable output; nil means stdout.
	Console []string
}

// Run executes one scrape run for the configured or requested date.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (scraper.RunSummary, error) {
	if cfg == nil {
		return scraper.RunSummary{}, fmt.Errorf("config is required")
	}

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return scraper.RunSummary{}, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return scraper.RunSummary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return scraper.RunSummary{}, fmt.Errorf("%w (lock %s)", ErrRunInProgress, cfg.LockPath())
	}
	logger := logging.NewNop()
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	logger, closeLogs, logPath, err := buildLogger(cfg, opts, runID)
	if err != nil {
		return scraper.RunSummary{}, err
	}
	defer closeLogs()

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update latest.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: logging.RunLogPattern, Exclude: []string{logPath}},
	)

	if opts.Preflight {
		if err := requirePreflight(ctx, cfg, logger); err != nil {
			return scraper.RunSummary{}, err
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	date, err := ResolveDate(cfg, opts.Date, now())
	if err != nil {
		return scraper.RunSummary{}, err
	}
	slots, err := ResolveSlots(cfg, opts.Slots)
	if err != nil {
		return scraper.RunSummary{}, err
	}

	logConfigSnapshot(logger, cfg, slots, opts.ContinueOnError || cfg.Scraper.ContinueOnError)

	seq, closeSeq, err := NewSequencer(cfg, logger, slots, opts.ContinueOnError)
	if err != nil {
		return scraper.RunSummary{}, err
	}
	defer closeSeq()

	return seq.Run(ctx, date)
}

// NewSequencer wires a Sequencer from config. The returned close function
// releases the run history database.
func NewSequencer(cfg *config.Config, logger *slog.Logger, slots []schedule.TimeSlot, continueOnError bool) (*scraper.Sequencer, func(), error) {
	client, err := upstream.New(cfg, upstream.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	store := storage.New(storage.NewLayout(cfg.Paths.DataDir, cfg.LockDir()), logger)

	closeFn := func() {}
	var recorder scraper.Recorder
	if cfg.History.Enabled {
		ledger, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String("history_path", cfg.History.Path),
				logging.String(logging.FieldImpact, "this run will not be recorded"),
				logging.String(logging.FieldErrorHint, "check history.path or set history.enabled = false"),
			)
		} else {
			recorder = ledger
			closeFn = func() { _ = ledger.Close() }
		}
	}

	seq, err := scraper.New(client, store, scraper.Options{
		Slots:           slots,
		ContinueOnError: continueOnError || cfg.Scraper.ContinueOnError,
		Notifier:        notifications.NewService(cfg, notifications.WithLogger(logger)),
		Recorder:        recorder,
		Logger:          logger,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return seq, closeFn, nil
}

func buildLogger(cfg *config.Config, opts Options, runID string) (*slog.Logger, func(), string, error) {
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	console := opts.Console
	if len(console) == 0 {
		console = []string{"stdout"}
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      console,
		ErrorOutputPaths: console,
		Development:      opts.Development,
		RunID:            runID,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("init logger: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lunchscraper-%s-%s.log", stamp, runID[:8]))
	fileHandler, closeFile, err := logging.OpenRunLog(logPath, level, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to open run log: %v\n", err)
		return logger, func() {}, "", nil
	}
	logger = logging.TeeLogger(logger, fileHandler)
	return logger, func() { _ = closeFile() }, logPath, nil
}

func requirePreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg)
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		logger.Info("preflight passed",
			logging.String(logging.FieldEventType, "preflight_passed"),
			logging.Int("check_count", len(results)),
		)
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(failed, "; "), nil)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "latest.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, slots []schedule.TimeSlot, continueOnError bool) {
	host := cfg.Upstream.BaseURL
	if parsed, err := url.Parse(cfg.Upstream.BaseURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	logger.Info("config snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("upstream_host", host),
		logging.Int("delivery_place_id", cfg.Upstream.DeliveryPlaceID),
		logging.Strings("slots", schedule.Strings(slots)),
		logging.Duration("request_interval", cfg.RequestInterval()),
		logging.Bool("continue_on_error", continueOnError),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.Topic) != ""),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.String("data_dir", cfg.Paths.DataDir),
	)
}
