package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// PrintfLogger routes printf-style library logging, such as resty's, into slog.
type PrintfLogger struct {
	logger *slog.Logger
}

// NewPrintfLogger wraps logger. A nil logger discards everything.
func NewPrintfLogger(logger *slog.Logger) *PrintfLogger {
	if logger == nil {
		logger = NewNop()
	}
	return &PrintfLogger{logger: logger}
}

func (l *PrintfLogger) Errorf(format string, v ...any) {
	l.logger.Error(sprintf(format, v...))
}

func (l *PrintfLogger) Warnf(format string, v ...any) {
	l.logger.Warn(sprintf(format, v...))
}

func (l *PrintfLogger) Debugf(format string, v ...any) {
	l.logger.Debug(sprintf(format, v...))
}

func sprintf(format string, v ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
