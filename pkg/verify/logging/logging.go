// Package logging provides component loggers for modelverify built on
// charmbracelet/log. Loggers write to stderr and, when a path is
// configured, to a log file as well.
//
// Basic usage:
//
//	logging.Init(logging.Config{Level: "info"})
//	logger := logging.Get("scanner")
//	logger.Info("scan started", "root", "/models")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string

	// Path is an optional log file. Empty disables file logging.
	Path string

	// Quiet suppresses console output entirely.
	Quiet bool
}

type state struct {
	mu      sync.Mutex
	level   log.Level
	quiet   bool
	file    io.WriteCloser
	loggers map[string]*log.Logger
}

var globalState = &state{
	level:   log.InfoLevel,
	loggers: make(map[string]*log.Logger),
}

// Init initializes the logging system. Before Init, loggers write to
// stderr at info level.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.file != nil {
		_ = globalState.file.Close()
		globalState.file = nil
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		globalState.file = f
	}

	globalState.level = level
	globalState.quiet = cfg.Quiet

	// Rebuild existing loggers with the new configuration.
	for component := range globalState.loggers {
		globalState.loggers[component] = newLogger(component)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *log.Logger {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}
	logger := newLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// newLogger builds a logger for the component. Must be called with
// globalState.mu held.
func newLogger(component string) *log.Logger {
	var w io.Writer = os.Stderr
	switch {
	case globalState.quiet && globalState.file != nil:
		w = globalState.file
	case globalState.quiet:
		w = io.Discard
	case globalState.file != nil:
		w = io.MultiWriter(os.Stderr, globalState.file)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           globalState.level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})
}

// Close flushes and closes the log file, if any.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.file == nil {
		return nil
	}
	err := globalState.file.Close()
	globalState.file = nil
	return err
}

// DefaultLogPath returns $XDG_STATE_HOME/modelverify/modelverify.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "modelverify", "modelverify.log")
}
