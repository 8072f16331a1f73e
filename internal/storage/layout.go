package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"lunchscraper/internal/schedule"
)

const (
	restaurantsDirName = "restaurants"
	menusDirName       = "lunch_menu"
)

// Layout maps dates and slots onto paths below the data directory. Lock files
// live under a separate directory so the data tree only holds scraped JSON.
type Layout struct {
	root    string
	lockDir string
}

// NewLayout returns a layout rooted at dataDir. An empty lockDir falls back to
// a lunchscraper directory under the system temp dir.
func NewLayout(dataDir, lockDir string) Layout {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "lunchscraper-locks")
	}
	return Layout{root: dataDir, lockDir: lockDir}
}

// Root returns the data directory.
func (l Layout) Root() string {
	return l.root
}

// RestaurantDir is data/restaurants/YYYY_MM_DD.
func (l Layout) RestaurantDir(date schedule.TargetDate) string {
	return filepath.Join(l.root, restaurantsDirName, date.Folder())
}

// RestaurantFile is the append-only restaurant listing for the date.
func (l Layout) RestaurantFile(date schedule.TargetDate) string {
	return filepath.Join(l.RestaurantDir(date), fmt.Sprintf("available_restaurants_%s.json", date))
}

// RestaurantLock guards rewrites of the date's restaurant listing.
func (l Layout) RestaurantLock(date schedule.TargetDate) string {
	return filepath.Join(l.lockDir, fmt.Sprintf("restaurants_%s.lock", date))
}

// MenuDir is data/lunch_menu/YYYY_MM_DD.
func (l Layout) MenuDir(date schedule.TargetDate) string {
	return filepath.Join(l.root, menusDirName, date.Folder())
}

// MenuFile names the menu of one restaurant at one slot.
func (l Layout) MenuFile(date schedule.TargetDate, slot schedule.TimeSlot, restaurantID string) string {
	return filepath.Join(l.MenuDir(date), fmt.Sprintf("lunch_menu_%s_%s_%s.json", date, slot, restaurantID))
}

// EnsureDailyFolders creates both per-date directories. Calling it again is harmless.
func (l Layout) EnsureDailyFolders(date schedule.TargetDate) error {
	for _, dir := range []string{l.RestaurantDir(date), l.MenuDir(date)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
