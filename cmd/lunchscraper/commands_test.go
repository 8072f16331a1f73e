package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lunchscraper/internal/testsupport"
)

func TestRunCommandScrapesRequestedSlot(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetRestaurants("11:30", `[{"id": 42, "name": "Bistro"}]`)

	out, err := env.run(t, "run", "--date", "2024-03-15", "--slot", "11:30")
	require.NoError(t, err)
	require.Contains(t, out, "11:30")
	require.Contains(t, out, "Menu files: 1")
	require.FileExists(t, filepath.Join(env.cfg.Paths.DataDir, "lunch_menu", "2024_03_15", "lunch_menu_2024-03-15_11:30_42.json"))
	require.FileExists(t, filepath.Join(env.cfg.Paths.DataDir, "restaurants", "2024_03_15", "available_restaurants_2024-03-15.json"))
	require.Len(t, env.upstream.RequestsTo(testsupport.RestaurantsPath), 1)
}

func TestRunCommandReportsFailedSlot(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetRestaurants("08:00", `[{"id": 1}]`)
	env.upstream.FailMenu("1", 500)

	out, err := env.run(t, "run", "--date", "2024-03-15", "--slot", "08:00", "--slot", "09:00", "--continue-on-error")
	require.Error(t, err)
	require.Contains(t, out, "Failed slots: 08:00")
	require.Len(t, env.upstream.RequestsTo(testsupport.RestaurantsPath), 2)
}

func TestRunCommandRejectsBadDate(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "run", "--date", "15/03/2024")
	require.ErrorContains(t, err, "YYYY-MM-DD")
	require.Empty(t, env.upstream.Requests())
}

func TestProvisionAndCountCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "provision", "--date", "2024-03-15")
	require.NoError(t, err)
	require.Contains(t, out, "Provisioned folders for 2024-03-15")
	require.DirExists(t, filepath.Join(env.cfg.Paths.DataDir, "restaurants", "2024_03_15"))
	require.DirExists(t, filepath.Join(env.cfg.Paths.DataDir, "lunch_menu", "2024_03_15"))

	out, err = env.run(t, "count", "--date", "2024-03-15")
	require.NoError(t, err)
	require.Contains(t, out, "0 menu files for 2024-03-15")

	env.upstream.SetRestaurants("12:30", `[{"id": 7}, {"id": 8}]`)
	_, err = env.run(t, "run", "--date", "2024-03-15", "--slot", "12:30", "--quiet")
	require.NoError(t, err)

	out, err = env.run(t, "count", "--date", "2024-03-15")
	require.NoError(t, err)
	require.Contains(t, out, "2 menu files for 2024-03-15")
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "No runs recorded")

	env.upstream.SetRestaurants("09:00", `[{"id": 3}]`)
	_, err = env.run(t, "run", "--date", "2024-03-15", "--slot", "09:00", "--quiet")
	require.NoError(t, err)

	out, err = env.run(t, "history", "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "2024-03-15")
	require.Contains(t, out, "completed")

	runs, err := testsupport.MustOpenHistory(t, env.cfg).ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	out, err = env.run(t, "history", "--run", runs[0].ID)
	require.NoError(t, err)
	require.Contains(t, out, "Run:        "+runs[0].ID)
	require.Contains(t, out, "09:00")

	_, err = env.run(t, "history", "--run", "missing")
	require.ErrorContains(t, err, "not found")
}

func TestHistoryCommandDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistoryDisabled())

	_, err := env.run(t, "history")
	require.ErrorContains(t, err, "disabled")
}

func TestPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "preflight")
	require.NoError(t, err)
	require.Contains(t, out, "== Preflight ==")
	require.Contains(t, out, "[OK]")
	require.NotContains(t, out, "[FAIL]")
}

func TestPreflightCommandFailsOnBadCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Upstream.Password = "wrong"
	writeTestConfig(t, env.configPath, env.cfg)

	out, err := env.run(t, "preflight")
	require.Error(t, err)
	require.Contains(t, out, "[FAIL]")
}

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "test-notify")
	require.NoError(t, err)
	require.Contains(t, out, "Notifications disabled")

	ntfy := testsupport.NewFakeNtfy(t)
	env = setupCLITestEnv(t, testsupport.WithNotifications(ntfy.URL(), "lunch", "tk_secret"))
	out, err = env.run(t, "test-notify")
	require.NoError(t, err)
	require.Contains(t, out, "Test notification sent")

	messages := ntfy.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "/lunch", messages[0].Path)
	require.Equal(t, "Bearer tk_secret", messages[0].Authorization)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "Config path: "+env.configPath)
	require.Contains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target})
	require.NoError(t, err)
	require.Contains(t, out, "Wrote sample configuration")
	require.FileExists(t, target)

	_, _, err = runCLI(t, []string{"config", "init", "--path", target})
	require.ErrorContains(t, err, "already exists")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"})
	require.NoError(t, err)
}

func TestRenderStatusLine(t *testing.T) {
	require.Equal(t, "  Data directory:            [OK] Writable", renderStatusLine("Data directory", statusOK, "Writable", false))
	colored := renderStatusLine("Upstream", statusError, "auth failed (401)", true)
	require.Contains(t, colored, ansiRed)
	require.Contains(t, colored, ansiReset)
}

func TestLogsCommandPrintsLatestRun(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "logs")
	require.Error(t, err)

	_, err = env.run(t, "run", "--date", "2024-03-15", "--slot", "08:00", "--quiet")
	require.NoError(t, err)

	out, err := env.run(t, "logs", "--lines", "1")
	require.NoError(t, err)
	require.Contains(t, out, `"event_type":"run_complete"`)
}
