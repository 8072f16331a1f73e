package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lunchscraper/internal/logging"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
	"lunchscraper/internal/upstream"
)

// Store persists restaurant listings and menus below a Layout.
type Store struct {
	layout Layout
	guard  *dateGuard
	logger *slog.Logger
}

// New returns a store writing under layout.
func New(layout Layout, logger *slog.Logger) *Store {
	return &Store{
		layout: layout,
		guard:  newDateGuard(),
		logger: logging.NewComponentLogger(logger, "storage"),
	}
}

// Layout exposes the paths the store writes to.
func (s *Store) Layout() Layout {
	return s.layout
}

// EnsureDailyFolders provisions the date's restaurant and menu directories.
func (s *Store) EnsureDailyFolders(date schedule.TargetDate) error {
	return s.layout.EnsureDailyFolders(date)
}

// AppendRestaurants appends restaurants to the date's listing file. An empty
// slice leaves the filesystem untouched and reports written=false.
func (s *Store) AppendRestaurants(ctx context.Context, date schedule.TargetDate, restaurants []upstream.Restaurant) (bool, error) {
	if len(restaurants) == 0 {
		return false, nil
	}
	dir := s.layout.RestaurantDir(date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create restaurant directory: %w", err)
	}
	path := s.layout.RestaurantFile(date)
	lockPath := s.layout.RestaurantLock(date)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	release, err := s.guard.acquire(ctx, date.String(), lockPath)
	if err != nil {
		return false, err
	}
	defer release()

	existing, err := readRestaurantFile(path)
	if err != nil {
		return false, err
	}
	combined := make([]upstream.Restaurant, 0, len(existing)+len(restaurants))
	combined = append(combined, existing...)
	combined = append(combined, restaurants...)

	if err := writeJSONAtomic(path, combined); err != nil {
		return false, err
	}
	s.logger.Debug("restaurant listing updated",
		logging.String("restaurants_path", path),
		logging.Int("previous_count", len(existing)),
		logging.Int("appended_count", len(restaurants)),
	)
	return true, nil
}

func readRestaurantFile(path string) ([]upstream.Restaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var existing []upstream.Restaurant
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, services.Wrap(services.ErrValidation, "restaurant_persistence", "read listing",
			fmt.Sprintf("%s is not a JSON array", filepath.Base(path)), err)
	}
	return existing, nil
}

// WriteMenus writes one file per menu record, replacing any previous file for
// the same slot and restaurant, and returns how many files were written.
func (s *Store) WriteMenus(ctx context.Context, date schedule.TargetDate, slot schedule.TimeSlot, menus []upstream.MenuRecord) (int, error) {
	written := 0
	for _, menu := range menus {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		id := menu.RestaurantID
		if id == "" || strings.ContainsAny(id, `/\`) {
			return written, services.Wrap(services.ErrValidation, "menu_persistence", "write menu",
				fmt.Sprintf("unusable restaurant id %q", menu.RestaurantID), nil)
		}
		path := s.layout.MenuFile(date, slot, id)
		if err := writeJSONAtomic(path, menu.MenuData); err != nil {
			return written, err
		}
		written++
		s.logger.Debug("menu saved",
			logging.String("menu_path", path),
			logging.String("restaurant_id", id),
			logging.String("restaurant_name", menu.RestaurantName),
		)
	}
	return written, nil
}

// CountMenuFiles counts *.json files in the date's menu directory. A missing
// directory counts as zero.
func (s *Store) CountMenuFiles(date schedule.TargetDate) (int, error) {
	entries, err := os.ReadDir(s.layout.MenuDir(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("list menu directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count, nil
}
