package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunchscraper/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunchscraper-run.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, result.Lines)
	require.EqualValues(t, 6, result.Offset)

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: result.Offset})
	require.NoError(t, err)
	require.Empty(t, result.Lines)
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	require.NoError(t, err)
	require.Empty(t, result.Lines)
	require.Zero(t, result.Offset)
}

func TestTailFollowWaitsForAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunchscraper-run.log")
	require.NoError(t, os.WriteFile(path, []byte("start\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"start"}, first.Lines)

	type outcome struct {
		result logs.TailResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: first.Offset, Follow: true, Wait: 5 * time.Second})
		done <- outcome{res, err}
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("later\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-done:
		require.NoError(t, got.err)
		require.Equal(t, []string{"later"}, got.result.Lines)
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
}

func TestTailFollowHonoursCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunchscraper-run.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := logs.Tail(ctx, path, logs.TailOptions{Offset: 0, Follow: true, Wait: time.Minute})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "lunchscraper-20240314T180000Z-aaaaaaaa.log")
	newer := filepath.Join(dir, "lunchscraper-20240315T180000Z-bbbbbbbb.log")
	require.NoError(t, os.WriteFile(older, []byte("old\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("new\n"), 0o644))

	got, err := logs.Locate(dir, "")
	require.NoError(t, err)
	require.Equal(t, newer, got)

	require.NoError(t, os.Symlink(older, filepath.Join(dir, logs.LatestName)))
	got, err = logs.Locate(dir, "")
	require.NoError(t, err)
	resolvedOlder, err := filepath.EvalSymlinks(older)
	require.NoError(t, err)
	require.Equal(t, resolvedOlder, got)

	got, err = logs.Locate(dir, "aaaaaaaa-1111-2222-3333-444444444444")
	require.NoError(t, err)
	require.Equal(t, older, got)

	_, err = logs.Locate(dir, "cccccccc")
	require.ErrorIs(t, err, logs.ErrNoLogs)

	_, err = logs.Locate(t.TempDir(), "")
	require.ErrorIs(t, err, logs.ErrNoLogs)
}
