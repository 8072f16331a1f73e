package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lunchscraper/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string // console (default) or json
	// OutputPaths and ErrorOutputPaths accept "stdout", "stderr", or file
	// paths. Both sets feed the same writer; duplicates are opened once.
	OutputPaths      []string
	ErrorOutputPaths []string
	// Development adds source locations at every level.
	Development bool
	// RunID, when set, is stamped on every record.
	RunID string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errOutputs := opts.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
	}
	writer, err := openOutputs(append(append([]string{}, outputs...), errOutputs...))
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(opts.Format, writer, level, opts.Development || level <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(opts.RunID); id != "" {
		handler = newRunIDHandler(handler, id)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates the logger used by auxiliary commands. Output goes to
// stderr, keeping stdout for command output, and to lunchscraper.log inside the
// configured log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "console", OutputPaths: []string{"stderr"}}
	if cfg == nil {
		return New(opts)
	}
	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	opts.ErrorOutputPaths = []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		opts.OutputPaths = append(opts.OutputPaths, filepath.Join(cfg.Paths.LogDir, "lunchscraper.log"))
	}
	return New(opts)
}

func newHandler(format string, w io.Writer, level slog.Level, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, level, addSource), nil
	case "json":
		return newJSONHandler(w, level, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutputs resolves each distinct path to a writer and joins them.
func openOutputs(paths []string) (io.Writer, error) {
	seen := make(map[string]struct{}, len(paths))
	var writers []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		w, err := openOutput(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func openOutput(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := ensureLogDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
