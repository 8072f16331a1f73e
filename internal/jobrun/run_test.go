package jobrun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lunchscraper/internal/config"
	"lunchscraper/internal/history"
	"lunchscraper/internal/jobrun"
	"lunchscraper/internal/logging"
	"lunchscraper/internal/schedule"
	"lunchscraper/internal/services"
	"lunchscraper/internal/testsupport"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 14, 18, 0, 0, 0, time.UTC)
}

func runOptions(t *testing.T) jobrun.Options {
	t.Helper()
	return jobrun.Options{
		Now:     fixedNow,
		Console: []string{filepath.Join(t.TempDir(), "console.log")},
	}
}

func newRunConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *testsupport.FakeUpstream) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	fake := testsupport.NewFakeUpstream(t, cfg.Upstream.Login, cfg.Upstream.Password)
	cfg.Upstream.BaseURL = fake.URL()
	return cfg, fake
}

func TestRunScrapesTomorrowByDefault(t *testing.T) {
	cfg, fake := newRunConfig(t, testsupport.WithSlots("11:30"))
	fake.SetRestaurants("11:30", `[{"id": 42, "name": "Bistro"}]`)

	summary, err := jobrun.Run(context.Background(), cfg, runOptions(t))
	require.NoError(t, err)
	require.Equal(t, "2024-03-15", summary.Date.String())
	require.Equal(t, 1, summary.MenuFiles)
	require.FileExists(t, filepath.Join(cfg.Paths.DataDir, "lunch_menu", "2024_03_15", "lunch_menu_2024-03-15_11:30_42.json"))

	ledger := testsupport.MustOpenHistory(t, cfg)
	runs, err := ledger.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, summary.RunID, runs[0].ID)
	require.Equal(t, history.StatusCompleted, runs[0].Status)
}

func TestRunWritesPerRunLog(t *testing.T) {
	cfg, _ := newRunConfig(t, testsupport.WithSlots("08:00"))

	summary, err := jobrun.Run(context.Background(), cfg, runOptions(t))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.RunLogPattern))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"run_id":"`+summary.RunID+`"`)
	require.Contains(t, string(data), `"event_type":"run_complete"`)
	require.Equal(t, 1, strings.Count(strings.Split(string(data), "\n")[0], `"run_id"`))

	target, err := filepath.EvalSymlinks(filepath.Join(cfg.Paths.LogDir, "latest.log"))
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(matches[0])
	require.NoError(t, err)
	require.Equal(t, resolved, target)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	cfg, fake := newRunConfig(t, testsupport.WithSlots("08:00"))

	_, err := jobrun.Run(context.Background(), cfg, runOptions(t))
	require.NoError(t, err)
	latest := filepath.Join(cfg.Paths.LogDir, "latest.log")
	before, err := filepath.EvalSymlinks(latest)
	require.NoError(t, err)
	served := len(fake.Requests())

	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = jobrun.Run(context.Background(), cfg, runOptions(t))
	require.ErrorIs(t, err, jobrun.ErrRunInProgress)
	require.Len(t, fake.Requests(), served)

	after, err := filepath.EvalSymlinks(latest)
	require.NoError(t, err)
	require.Equal(t, before, after)
	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, logging.RunLogPattern))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRunPreflightBlocksBadCredentials(t *testing.T) {
	cfg, fake := newRunConfig(t, testsupport.WithSlots("08:00"))
	cfg.Upstream.Password = "wrong"

	opts := runOptions(t)
	opts.Preflight = true
	_, err := jobrun.Run(context.Background(), cfg, opts)
	require.ErrorIs(t, err, services.ErrConfiguration)
	require.Empty(t, fake.RequestsTo(testsupport.MenuItemsPath))
}

func TestRunSlotOverrideAndDate(t *testing.T) {
	cfg, fake := newRunConfig(t)
	opts := runOptions(t)
	opts.Date = "2024-04-01"
	opts.Slots = []string{"14:00", "08:00"}

	summary, err := jobrun.Run(context.Background(), cfg, opts)
	require.NoError(t, err)
	require.Equal(t, "2024-04-01", summary.Date.String())

	var hours []string
	for _, req := range fake.RequestsTo(testsupport.RestaurantsPath) {
		hours = append(hours, req.Query.Get("hour"))
	}
	if diff := cmp.Diff([]string{"08:00", "14:00"}, hours); diff != "" {
		t.Fatalf("slot order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDate(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	date, err := jobrun.ResolveDate(cfg, "", fixedNow())
	require.NoError(t, err)
	require.Equal(t, "2024-03-15", date.String())

	cfg.Schedule.DaysAhead = 0
	date, err = jobrun.ResolveDate(cfg, "", fixedNow())
	require.NoError(t, err)
	require.Equal(t, "2024-03-14", date.String())

	_, err = jobrun.ResolveDate(cfg, "15/03/2024", fixedNow())
	require.ErrorIs(t, err, services.ErrValidation)

	cfg.Schedule.Timezone = "Mars/Olympus"
	_, err = jobrun.ResolveDate(cfg, "", fixedNow())
	require.ErrorIs(t, err, services.ErrConfiguration)
}

func TestResolveSlots(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	slots, err := jobrun.ResolveSlots(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, schedule.DefaultSlots, schedule.Strings(slots))

	slots, err = jobrun.ResolveSlots(cfg, []string{"13:30", "9:00", "15:00"})
	require.NoError(t, err)
	require.Equal(t, []string{"09:00", "13:30", "15:00"}, schedule.Strings(slots))

	_, err = jobrun.ResolveSlots(cfg, []string{"25:00"})
	require.True(t, errors.Is(err, services.ErrValidation))
}
