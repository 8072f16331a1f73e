package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"

	"lunchscraper/internal/config"
	"lunchscraper/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	upstream   *testsupport.FakeUpstream
	configPath string
	consoleLog string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"LUNCH_API_URL", "LUNCH_API_LOGIN", "LUNCH_API_PASSWORD", "LUNCH_API_CREDENTIALS", "NTFY_TOPIC", "NTFY_TOKEN"} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, opts...)
	fake := testsupport.NewFakeUpstream(t, cfg.Upstream.Login, cfg.Upstream.Password)
	cfg.Upstream.BaseURL = fake.URL()

	base := testsupport.BaseDir(cfg)
	env := &cliTestEnv{
		cfg:        cfg,
		upstream:   fake,
		configPath: filepath.Join(base, "config.toml"),
		consoleLog: filepath.Join(base, "console.log"),
	}
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flags := []string{"--config", e.configPath, "--log-output", e.consoleLog}
	stdout, _, err := runCLI(t, append(flags, args...))
	return stdout, err
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
