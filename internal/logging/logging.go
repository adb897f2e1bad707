// Package logging holds the process-wide logger. Components take a
// component-scoped entry from For instead of keeping their own debug flags.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	base    = logrus.New()
	logFile *os.File
)

// Setup configures the shared logger. An empty file keeps output on stderr;
// otherwise output goes to both stderr and the file.
func Setup(level string, file string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	base.SetLevel(lvl)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if file == "" {
		base.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	base.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

// For returns a logger tagged with the given component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// Logger exposes the shared logger, mostly for tests that want to silence it.
func Logger() *logrus.Logger {
	return base
}

// Close releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
