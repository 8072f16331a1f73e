package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LatestName is the pointer kept next to the newest run log.
const LatestName = "latest.log"

// ErrNoLogs is returned when the log directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

// Locate returns the log file for runID, or the newest run log when runID is
// empty. Run logs are named lunchscraper-<stamp>-<id8>.log, so any prefix of
// the run id of at least eight characters matches.
func Locate(logDir, runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return latest(logDir)
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	matches, err := filepath.Glob(filepath.Join(logDir, "lunchscraper-*-"+short+".log"))
	if err != nil {
		return "", fmt.Errorf("match run log: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w for run %s in %s", ErrNoLogs, runID, logDir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func latest(logDir string) (string, error) {
	pointer := filepath.Join(logDir, LatestName)
	if resolved, err := filepath.EvalSymlinks(pointer); err == nil {
		return resolved, nil
	}
	matches, err := filepath.Glob(filepath.Join(logDir, "lunchscraper-*.log"))
	if err != nil {
		return "", fmt.Errorf("match run logs: %w", err)
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(logDir); statErr != nil {
			return "", fmt.Errorf("%w: %v", ErrNoLogs, statErr)
		}
		return "", fmt.Errorf("%w in %s", ErrNoLogs, logDir)
	}
	// Stamps are UTC and fixed width, so lexical order is chronological.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
