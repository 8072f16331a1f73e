package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/services"
)

// Stage names used in logs, context, and the run history.
const (
	StageProvision             = "provision"
	StageRestaurantDiscovery   = "restaurant_discovery"
	StageRestaurantPersistence = "restaurant_persistence"
	StageMenuDiscovery         = "menu_discovery"
	StageMenuPersistence       = "menu_persistence"
	StageNotify                = "notify"
)

// Func is the body of a stage. The returned attributes are attached to the
// stage_complete event.
type Func func(ctx context.Context) ([]logging.Attr, error)

// Options describes one stage execution.
type Options struct {
	Logger    *slog.Logger
	StageName string
	Fn        Func
}

// Run executes the stage body, bracketing it with stage_start and either
// stage_complete or stage_failure events. The body's error is returned as-is.
func Run(ctx context.Context, opts Options) error {
	if opts.Fn == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", Label(opts.StageName)),
	)

	started := time.Now()
	attrs, err := opts.Fn(stageCtx)
	elapsed := time.Since(started)
	if err != nil {
		return handleFailure(stageLogger, opts.StageName, elapsed, err)
	}

	fields := append([]logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	}, attrs...)
	stageLogger.Info(Label(opts.StageName)+" completed", logging.Args(fields...)...)
	return nil
}

func handleFailure(logger *slog.Logger, stageName string, elapsed time.Duration, stageErr error) error {
	if errors.Is(stageErr, context.Canceled) {
		logger.Warn("stage canceled",
			logging.String(logging.FieldEventType, "stage_canceled"),
			logging.Duration("stage_duration", elapsed),
			logging.String(logging.FieldErrorHint, "run was interrupted; rerun to fill the remaining slots"),
			logging.String(logging.FieldImpact, "remaining stages skipped"),
		)
		return stageErr
	}
	logging.ErrorWithContext(logger, Label(stageName)+" failed", "stage_failure",
		logging.String("resolved_status", string(services.FailureStatus(stageErr))),
		logging.Duration("stage_duration", elapsed),
		logging.String(logging.FieldErrorHint, failureHint(stageErr)),
		logging.Error(stageErr),
	)
	return stageErr
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "raise upstream.request_timeout_seconds or check network latency"
	case errors.Is(err, services.ErrExternalTool):
		return "check upstream availability and credentials"
	case errors.Is(err, services.ErrValidation):
		return "inspect the data directory for unexpected content"
	case errors.Is(err, services.ErrConfiguration):
		return "review the config file"
	default:
		return "check data_dir permissions and free space"
	}
}

var labelCaser = cases.Title(language.English)

// Label turns a stage name such as "menu_discovery" into "Menu Discovery".
func Label(stage string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ""
	}
	return labelCaser.String(strings.ReplaceAll(stage, "_", " "))
}
