// Package logging builds the structured loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/sieve/internal/config"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = log.InfoLevel

// New returns a logger writing to w at the named level. An empty level
// selects DefaultLevel.
func New(level string, w io.Writer, prefix string) (*log.Logger, error) {
	lvl := DefaultLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	}), nil
}

// FromEnv builds a logger from SIEVE_LOG_LEVEL and SIEVE_LOG_FILE. Without a
// file the logger writes to fallback, which may be io.Discard. The returned
// close function releases the file, if one was opened.
func FromEnv(fallback io.Writer, prefix string) (*log.Logger, func() error, error) {
	w := fallback
	closeFn := func() error { return nil }

	if path := config.GetEnv(config.EnvLogFile, ""); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	logger, err := New(config.GetEnv(config.EnvLogLevel, ""), w, prefix)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}
