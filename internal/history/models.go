package history

import "time"

// Status describes the outcome of a run or of a single slot chain.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
	StatusInvalid   Status = "invalid"
	StatusCanceled  Status = "canceled"
)

// Run is one invocation of the scraper for a target date.
type Run struct {
	ID           string
	TargetDate   string
	Status       Status
	Slots        []string
	StartedAt    time.Time
	FinishedAt   *time.Time
	MenuFiles    int
	Notified     bool
	ErrorMessage string
}

// Duration reports how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SlotRecord captures the outcome of one slot chain within a run.
type SlotRecord struct {
	RunID        string
	Slot         string
	Status       Status
	Restaurants  int
	Menus        int
	Skipped      int
	Duration     time.Duration
	ErrorMessage string
	RecordedAt   time.Time
}
