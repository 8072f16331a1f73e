package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lunchscraper/internal/history"
	"lunchscraper/internal/schedule"
)

// SlotResult is the outcome of one slot chain.
type SlotResult struct {
	Slot               schedule.TimeSlot
	Restaurants        int
	RestaurantsWritten bool
	Menus              int
	MenusWritten       int
	Skipped            int
	Duration           time.Duration
	Err                error
}

// Status classifies the slot for the run history.
func (r SlotResult) Status() history.Status {
	switch {
	case r.Err != nil:
		return statusForError(r.Err)
	case r.Restaurants == 0:
		return history.StatusEmpty
	default:
		return history.StatusCompleted
	}
}

// RunSummary describes a whole run.
type RunSummary struct {
	RunID      string
	Date       schedule.TargetDate
	Slots      []SlotResult
	MenuFiles  int
	Notified   bool
	Status     history.Status
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// FailedSlots lists the slots whose chain returned an error.
func (s RunSummary) FailedSlots() []string {
	var failed []string
	for _, slot := range s.Slots {
		if slot.Err != nil {
			failed = append(failed, slot.Slot.String())
		}
	}
	return failed
}

// TotalRestaurants sums discovered restaurants across slots.
func (s RunSummary) TotalRestaurants() int {
	total := 0
	for _, slot := range s.Slots {
		total += slot.Restaurants
	}
	return total
}

// TotalMenus sums menu files written across slots.
func (s RunSummary) TotalMenus() int {
	total := 0
	for _, slot := range s.Slots {
		total += slot.MenusWritten
	}
	return total
}

// SlotFailures is returned by Run when slots failed under ContinueOnError.
type SlotFailures struct {
	Failed []SlotResult
}

func (e *SlotFailures) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, result := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", result.Slot, result.Err))
	}
	return fmt.Sprintf("%d slot(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap exposes each slot error to errors.Is and errors.As.
func (e *SlotFailures) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, result := range e.Failed {
		errs = append(errs, result.Err)
	}
	return errs
}

// IsSlotFailures reports whether err came from isolated slot failures.
func IsSlotFailures(err error) bool {
	var target *SlotFailures
	return errors.As(err, &target)
}
