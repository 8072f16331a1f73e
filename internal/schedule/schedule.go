package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout renders a TargetDate for API parameters and file names.
	DateLayout = "2006-01-02"
	// FolderLayout renders a TargetDate for partition directory names.
	FolderLayout = "2006_01_02"
	slotLayout   = "15:04"
)

// DefaultSlots lists the times of day queried on every run, in processing order.
var DefaultSlots = []string{"08:00", "09:00", "11:00", "11:30", "12:30", "13:30", "14:00"}

// TargetDate is the calendar day a run collects data for.
type TargetDate struct {
	day time.Time
}

// NewTargetDate truncates t to its calendar day in t's location.
func NewTargetDate(t time.Time) TargetDate {
	y, m, d := t.Date()
	return TargetDate{day: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// Tomorrow returns the target date daysAhead days after now in loc.
func Tomorrow(now time.Time, loc *time.Location, daysAhead int) TargetDate {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return NewTargetDate(local.AddDate(0, 0, daysAhead))
}

// ParseTargetDate parses a YYYY-MM-DD value in loc.
func ParseTargetDate(value string, loc *time.Location) (TargetDate, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return TargetDate{}, fmt.Errorf("parse target date %q: expected YYYY-MM-DD", value)
	}
	return NewTargetDate(parsed), nil
}

// String returns the YYYY-MM-DD form.
func (d TargetDate) String() string {
	return d.day.Format(DateLayout)
}

// Folder returns the YYYY_MM_DD form used for partition directories.
func (d TargetDate) Folder() string {
	return d.day.Format(FolderLayout)
}

// Time returns midnight of the target date.
func (d TargetDate) Time() time.Time {
	return d.day
}

// IsZero reports whether the date was never set.
func (d TargetDate) IsZero() bool {
	return d.day.IsZero()
}

// TimeSlot is a wall-clock HH:MM time at which availability is queried.
type TimeSlot string

// ParseSlot validates and canonicalizes an HH:MM value ("8:00" becomes "08:00").
func ParseSlot(value string) (TimeSlot, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := time.Parse(slotLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("parse time slot %q: expected HH:MM", value)
	}
	return TimeSlot(parsed.Format(slotLayout)), nil
}

// ParseSlots parses values in order and rejects duplicates.
func ParseSlots(values []string) ([]TimeSlot, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one time slot is required")
	}
	slots := make([]TimeSlot, 0, len(values))
	seen := make(map[TimeSlot]struct{}, len(values))
	for _, value := range values {
		slot, err := ParseSlot(value)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[slot]; dup {
			return nil, fmt.Errorf("duplicate time slot %q", slot)
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	return slots, nil
}

// String returns the HH:MM form.
func (s TimeSlot) String() string {
	return string(s)
}

// Strings converts slots back to their HH:MM form.
func Strings(slots []TimeSlot) []string {
	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = slot.String()
	}
	return out
}
