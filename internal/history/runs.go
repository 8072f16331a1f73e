package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = `id, target_date, status, slots, started_at, finished_at, menu_files, notified, error_message`

// BeginRun inserts a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, id, targetDate string, slots []string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id is required")
	}
	if strings.TrimSpace(targetDate) == "" {
		return nil, errors.New("target date is required")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, target_date, status, slots, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, targetDate, StatusRunning, strings.Join(slots, ","), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{
		ID:         id,
		TargetDate: targetDate,
		Status:     StatusRunning,
		Slots:      append([]string(nil), slots...),
		StartedAt:  now,
	}, nil
}

// RecordSlot upserts the outcome of one slot chain.
func (s *Store) RecordSlot(ctx context.Context, rec SlotRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO slot_results (run_id, slot, status, restaurants, menus, skipped, duration_ms, error_message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, slot) DO UPDATE SET
             status = excluded.status,
             restaurants = excluded.restaurants,
             menus = excluded.menus,
             skipped = excluded.skipped,
             duration_ms = excluded.duration_ms,
             error_message = excluded.error_message,
             recorded_at = excluded.recorded_at`,
		rec.RunID,
		rec.Slot,
		rec.Status,
		rec.Restaurants,
		rec.Menus,
		rec.Skipped,
		rec.Duration.Milliseconds(),
		nullableString(rec.ErrorMessage),
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record slot %s: %w", rec.Slot, err)
	}
	return nil
}

// FinishRun stamps the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, menuFiles int, notified bool, runErr error) error {
	now := time.Now().UTC()
	var message string
	if runErr != nil {
		message = runErr.Error()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, menu_files = ?, notified = ?, error_message = ? WHERE id = ?`,
		status, nullableTime(&now), menuFiles, boolToInt(notified), nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// GetRun fetches a run by identifier. A missing run returns nil without error.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SlotsForRun returns the slot records of a run in slot order.
func (s *Store) SlotsForRun(ctx context.Context, runID string) ([]SlotRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, slot, status, restaurants, menus, skipped, duration_ms, error_message, recorded_at
         FROM slot_results WHERE run_id = ? ORDER BY slot`, runID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var records []SlotRecord
	for rows.Next() {
		var (
			rec        SlotRecord
			durationMS int64
			message    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&rec.RunID, &rec.Slot, &rec.Status, &rec.Restaurants, &rec.Menus,
			&rec.Skipped, &durationMS, &message, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.ErrorMessage = message.String
		rec.RecordedAt = parseTime(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		slots      string
		startedAt  string
		finishedAt sql.NullString
		notified   int
		message    sql.NullString
	)
	if err := row.Scan(&run.ID, &run.TargetDate, &run.Status, &slots, &startedAt,
		&finishedAt, &run.MenuFiles, &notified, &message); err != nil {
		return nil, err
	}
	if slots != "" {
		run.Slots = strings.Split(slots, ",")
	}
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		ts := parseTime(finishedAt.String)
		run.FinishedAt = &ts
	}
	run.Notified = notified != 0
	run.ErrorMessage = message.String
	return &run, nil
}
