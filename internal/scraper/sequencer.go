package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lunchscraper/internal/history"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/notifications"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
	"lunchscraper/internal/stageexec"
	"lunchscraper/internal/upstream"
)

// Upstream is the slice of the API client the sequencer uses.
type Upstream interface {
	FetchRestaurants(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot) ([]upstream.Restaurant, error)
	FetchMenus(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot, restaurants []upstream.Restaurant) ([]upstream.MenuRecord, error)
}

// Storage persists what the slot chain fetched.
type Storage interface {
	EnsureDailyFolders(date schedule.TargetDate) error
	AppendRestaurants(ctx context.Context, date schedule.TargetDate, restaurants []upstream.Restaurant) (bool, error)
	WriteMenus(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot, menus []upstream.MenuRecord) (int, error)
	CountMenuFiles(date schedule.TargetDate) (int, error)
}

// Recorder keeps the run ledger. history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, id, targetDate string, slots []string) (*history.Run, error)
	RecordSlot(ctx context.Context, rec history.SlotRecord) error
	FinishRun(ctx context.Context, id string, status history.Status, menuFiles int, notified bool, runErr error) error
}

// Options configures a Sequencer.
type Options struct {
	Slots           []schedule.TimeSlot
	ContinueOnError bool
	Notifier        notifications.Service
	Recorder        Recorder
	Logger          *slog.Logger
}

// Sequencer drives the slot chains of a run.
type Sequencer struct {
	upstream        Upstream
	store           Storage
	notifier        notifications.Service
	recorder        Recorder
	slots           []schedule.TimeSlot
	continueOnError bool
	logger          *slog.Logger
}

// New validates the options and returns a sequencer.
func New(client Upstream, store Storage, opts Options) (*Sequencer, error) {
	if client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scraper", "init", "upstream client is required", nil)
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scraper", "init", "storage is required", nil)
	}
	if len(opts.Slots) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "scraper", "init", "at least one time slot is required", nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Sequencer{
		upstream:        client,
		store:           store,
		notifier:        notifier,
		recorder:        opts.Recorder,
		slots:           append([]schedule.TimeSlot(nil), opts.Slots...),
		continueOnError: opts.ContinueOnError,
		logger:          logging.NewComponentLogger(opts.Logger, "scraper"),
	}, nil
}

// Slots returns the slots processed by Run, in order.
func (s *Sequencer) Slots() []schedule.TimeSlot {
	return append([]schedule.TimeSlot(nil), s.slots...)
}

// Run scrapes every slot for date. The run id is taken from ctx when present.
func (s *Sequencer) Run(ctx context.Context, date schedule.TargetDate) (RunSummary, error) {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	ctx = services.WithTargetDate(ctx, date.String())
	logger := logging.WithContext(ctx, s.logger)

	summary := RunSummary{
		RunID:     runID,
		Date:      date,
		Status:    history.StatusRunning,
		StartedAt: time.Now(),
	}
	recorder := s.beginRun(ctx, logger, runID, date)

	logger.Info("scrape run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("slot_count", len(s.slots)),
		logging.Bool("continue_on_error", s.continueOnError),
	)

	err := stageexec.Run(ctx, stageexec.Options{
		Logger:    s.logger,
		StageName: stageexec.StageProvision,
		Fn: func(context.Context) ([]logging.Attr, error) {
			return nil, s.store.EnsureDailyFolders(date)
		},
	})
	if err != nil {
		return s.fail(ctx, logger, recorder, summary, err)
	}

	var failed []SlotResult
	for _, slot := range s.slots {
		result := s.runSlot(ctx, date, slot)
		summary.Slots = append(summary.Slots, result)
		s.recordSlot(ctx, logger, recorder, runID, result)

		if result.Err == nil {
			continue
		}
		if !s.continueOnError || ctx.Err() != nil {
			return s.fail(ctx, logger, recorder, summary, result.Err)
		}
		failed = append(failed, result)
		logging.WarnWithContext(logger, "slot failed; continuing with next slot", "slot_isolated_failure",
			logging.String(logging.FieldSlot, slot.String()),
			logging.Error(result.Err),
			logging.String(logging.FieldImpact, "this slot has incomplete data for the day"),
			logging.String(logging.FieldErrorHint, "rerun with --slot "+slot.String()+" once upstream recovers"),
		)
	}

	err = stageexec.Run(ctx, stageexec.Options{
		Logger:    s.logger,
		StageName: stageexec.StageNotify,
		Fn: func(stageCtx context.Context) ([]logging.Attr, error) {
			count, err := s.store.CountMenuFiles(date)
			if err != nil {
				return nil, err
			}
			summary.MenuFiles = count
			summary.Notified = s.notifyCompleted(stageCtx, summary)
			return []logging.Attr{
				logging.Int("menu_files", count),
				logging.Bool("notified", summary.Notified),
			}, nil
		},
	})
	if err != nil {
		return s.fail(ctx, logger, recorder, summary, err)
	}

	summary.FinishedAt = time.Now()
	var runErr error
	switch {
	case len(failed) > 0:
		summary.Status = history.StatusPartial
		runErr = &SlotFailures{Failed: failed}
	case summary.TotalRestaurants() == 0:
		summary.Status = history.StatusEmpty
	default:
		summary.Status = history.StatusCompleted
	}
	s.finishRun(ctx, logger, recorder, summary, runErr)

	logger.Info("scrape run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(summary.Status)),
		logging.Int("restaurant_count", summary.TotalRestaurants()),
		logging.Int("menus_written", summary.TotalMenus()),
		logging.Int("menu_files", summary.MenuFiles),
		logging.Strings("failed_slots", summary.FailedSlots()),
		logging.Duration("run_duration", summary.Duration()),
	)
	return summary, runErr
}

// runSlot executes discovery, restaurant persistence, menu discovery and menu
// persistence for one slot. An empty discovery ends the chain early.
func (s *Sequencer) runSlot(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot) SlotResult {
	ctx = services.WithSlot(ctx, slot.String())
	result := SlotResult{Slot: slot}
	started := time.Now()

	var restaurants []upstream.Restaurant
	result.Err = stageexec.Run(ctx, stageexec.Options{
		Logger:    s.logger,
		StageName: stageexec.StageRestaurantDiscovery,
		Fn: func(stageCtx context.Context) ([]logging.Attr, error) {
			var err error
			restaurants, err = s.upstream.FetchRestaurants(stageCtx, date, slot)
			return []logging.Attr{logging.Int("restaurant_count", len(restaurants))}, err
		},
	})
	if result.Err != nil {
		result.Duration = time.Since(started)
		return result
	}
	result.Restaurants = len(restaurants)
	if len(restaurants) == 0 {
		logging.WithContext(ctx, s.logger).Info("no restaurants available; slot chain skipped",
			logging.String(logging.FieldEventType, "slot_empty"),
		)
		result.Duration = time.Since(started)
		return result
	}

	steps := []stageexec.Options{
		{
			StageName: stageexec.StageRestaurantPersistence,
			Fn: func(stageCtx context.Context) ([]logging.Attr, error) {
				written, err := s.store.AppendRestaurants(stageCtx, date, restaurants)
				result.RestaurantsWritten = written
				return []logging.Attr{logging.Int("restaurants_written", len(restaurants))}, err
			},
		},
	}
	var menus []upstream.MenuRecord
	steps = append(steps,
		stageexec.Options{
			StageName: stageexec.StageMenuDiscovery,
			Fn: func(stageCtx context.Context) ([]logging.Attr, error) {
				var err error
				menus, err = s.upstream.FetchMenus(stageCtx, date, slot, restaurants)
				if err != nil {
					return nil, err
				}
				result.Menus = len(menus)
				result.Skipped = countMissingIDs(restaurants)
				return []logging.Attr{
					logging.Int("menu_count", len(menus)),
					logging.Int("skipped_restaurants", result.Skipped),
				}, nil
			},
		},
		stageexec.Options{
			StageName: stageexec.StageMenuPersistence,
			Fn: func(stageCtx context.Context) ([]logging.Attr, error) {
				n, err := s.store.WriteMenus(stageCtx, date, slot, menus)
				result.MenusWritten = n
				return []logging.Attr{logging.Int("menus_written", n)}, err
			},
		},
	)
	for _, step := range steps {
		step.Logger = s.logger
		if err := stageexec.Run(ctx, step); err != nil {
			result.Err = err
			break
		}
	}
	result.Duration = time.Since(started)
	return result
}

func countMissingIDs(restaurants []upstream.Restaurant) int {
	missing := 0
	for _, r := range restaurants {
		if !r.HasID() {
			missing++
		}
	}
	return missing
}

func (s *Sequencer) notifyCompleted(ctx context.Context, summary RunSummary) bool {
	err := s.notifier.Publish(ctx, notifications.EventRunCompleted, notifications.Payload{
		notifications.KeyDate:        summary.Date.String(),
		notifications.KeyMenuFiles:   summary.MenuFiles,
		notifications.KeyFailedSlots: summary.FailedSlots(),
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "completion notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_url, topic and token"),
			logging.String(logging.FieldImpact, "run succeeded but nobody was told"),
		)
		return false
	}
	return true
}

// fail closes out a run that stopped early. No completion notification is
// sent; the failure event is published and only delivered when enabled.
func (s *Sequencer) fail(ctx context.Context, logger *slog.Logger, recorder Recorder, summary RunSummary, err error) (RunSummary, error) {
	summary.FinishedAt = time.Now()
	summary.Status = statusForError(err)
	s.finishRun(ctx, logger, recorder, summary, err)

	if !errors.Is(err, context.Canceled) {
		notifyCtx := context.WithoutCancel(ctx)
		if pubErr := s.notifier.Publish(notifyCtx, notifications.EventRunFailed, notifications.Payload{
			notifications.KeyDate:  summary.Date.String(),
			notifications.KeyError: err,
		}); pubErr != nil {
			logger.Debug("failure notification not delivered", logging.Error(pubErr))
		}
	}

	logging.ErrorWithContext(logger, "scrape run failed", "run_failed",
		logging.Alert("run_aborted"),
		logging.String("status", string(summary.Status)),
		logging.String("failed_stage", services.StageOf(err)),
		logging.Int("slots_attempted", len(summary.Slots)),
		logging.Duration("run_duration", summary.Duration()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "files already written stay on disk; rerun the date to complete it"),
	)
	return summary, err
}

func statusForError(err error) history.Status {
	return services.FailureStatus(err)
}

func (s *Sequencer) beginRun(ctx context.Context, logger *slog.Logger, runID string, date schedule.TargetDate) Recorder {
	if s.recorder == nil {
		return nil
	}
	if _, err := s.recorder.BeginRun(ctx, runID, date.String(), schedule.Strings(s.slots)); err != nil {
		logging.WarnWithContext(logger, "run history unavailable; continuing without ledger", "history_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `lunchscraper history`"),
			logging.String(logging.FieldErrorHint, "check history.path permissions"),
		)
		return nil
	}
	return s.recorder
}

func (s *Sequencer) recordSlot(ctx context.Context, logger *slog.Logger, recorder Recorder, runID string, result SlotResult) {
	if recorder == nil {
		return
	}
	rec := history.SlotRecord{
		RunID:       runID,
		Slot:        result.Slot.String(),
		Status:      result.Status(),
		Restaurants: result.Restaurants,
		Menus:       result.MenusWritten,
		Skipped:     result.Skipped,
		Duration:    result.Duration,
	}
	if result.Err != nil {
		rec.ErrorMessage = result.Err.Error()
	}
	if err := recorder.RecordSlot(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "slot result not recorded", "history_slot_failed",
			logging.String(logging.FieldSlot, result.Slot.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history is incomplete"),
		)
	}
}

func (s *Sequencer) finishRun(ctx context.Context, logger *slog.Logger, recorder Recorder, summary RunSummary, runErr error) {
	if recorder == nil {
		return
	}
	if err := recorder.FinishRun(context.WithoutCancel(ctx), summary.RunID, summary.Status, summary.MenuFiles, summary.Notified, runErr); err != nil {
		logging.WarnWithContext(logger, "run result not recorded", "history_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, fmt.Sprintf("run %s stays marked running in history", summary.RunID)),
		)
	}
}
