package jobrun

import (
	"strings"
	"time"

	"lunchscraper/internal/config"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
)

// ResolveDate returns the date named by value, or the configured days-ahead
// date relative to now when value is blank.
func ResolveDate(cfg *config.Config, value string, now time.Time) (schedule.TargetDate, error) {
	loc, err := cfg.Location()
	if err != nil {
		return schedule.TargetDate{}, services.Wrap(services.ErrConfiguration, "run", "resolve date", "", err)
	}
	if value = strings.TrimSpace(value); value != "" {
		date, err := schedule.ParseTargetDate(value, loc)
		if err != nil {
			return schedule.TargetDate{}, services.Wrap(services.ErrValidation, "run", "resolve date", "", err)
		}
		return date, nil
	}
	return schedule.Tomorrow(now, loc, cfg.Schedule.DaysAhead), nil
}

// ResolveSlots parses overrides, falling back to the configured slots. The
// configured order is kept when overrides are a subset of it.
func ResolveSlots(cfg *config.Config, overrides []string) ([]schedule.TimeSlot, error) {
	configured, err := schedule.ParseSlots(cfg.Schedule.Slots)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "run", "resolve slots", "", err)
	}
	if len(overrides) == 0 {
		return configured, nil
	}
	requested, err := schedule.ParseSlots(overrides)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "run", "resolve slots", "", err)
	}

	wanted := make(map[schedule.TimeSlot]bool, len(requested))
	for _, slot := range requested {
		wanted[slot] = true
	}
	ordered := make([]schedule.TimeSlot, 0, len(requested))
	for _, slot := range configured {
		if wanted[slot] {
			ordered = append(ordered, slot)
			delete(wanted, slot)
		}
	}
	for _, slot := range requested {
		if wanted[slot] {
			ordered = append(ordered, slot)
		}
	}
	return ordered, nil
}
