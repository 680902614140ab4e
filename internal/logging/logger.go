// Package logging wraps zerolog with the component and run id tags used
// across the booker.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level is a zerolog severity.
type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

const timeFormat = "2006-01-02 15:04:05.000"

// ParseLevel maps DEBUG/INFO/WARNING/ERROR (any case) to a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled lines tagged with a component and a run id.
// Loggers derived with With or WithRunID share the writer and the log file.
type Logger struct {
	base      zerolog.Logger
	zl        zerolog.Logger
	component string
	runID     string
	file      *os.File
	closeOnce *sync.Once
}

func newLogger(base zerolog.Logger, component string) *Logger {
	l := &Logger{
		base:      base,
		component: component,
		runID:     uuid.New().String(),
		closeOnce: &sync.Once{},
	}
	l.tag()
	return l
}

func (l *Logger) tag() {
	l.zl = l.base.With().Str("component", l.component).Str("run_id", l.runID).Logger()
}

// New creates a logger writing human-readable lines to stdout and, when logsDir
// is not empty, JSON lines to <logsDir>/booking.log. If the file cannot be
// opened the logger keeps writing to stdout and the error is returned alongside it.
func New(component string, level Level, logsDir string) (*Logger, error) {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
	stdoutOnly := func() *Logger {
		return newLogger(zerolog.New(console).Level(level).With().Timestamp().Logger(), component)
	}
	if logsDir == "" {
		return stdoutOnly(), nil
	}

	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return stdoutOnly(), fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(logsDir, "booking.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return stdoutOnly(), fmt.Errorf("failed to open log file: %w", err)
	}

	w := zerolog.MultiLevelWriter(console, file)
	l := newLogger(zerolog.New(w).Level(level).With().Timestamp().Logger(), component)
	l.file = file
	return l, nil
}

// NewWriter creates a logger that writes JSON lines only to w.
func NewWriter(component string, level Level, w io.Writer) *Logger {
	return newLogger(zerolog.New(w).Level(level).With().Timestamp().Logger(), component)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(zerolog.Nop(), "discard")
}

// With returns a logger for another component sharing the same output.
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	c.tag()
	return &c
}

// WithRunID returns a logger tagged with the given run id.
func (l *Logger) WithRunID(runID string) *Logger {
	c := *l
	c.runID = runID
	c.tag()
	return &c
}

// RunID returns the run id this logger is tagged with.
func (l *Logger) RunID() string {
	return l.runID
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.zl.Debug().Msgf(format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.zl.Info().Msgf(format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.zl.Warn().Msgf(format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.zl.Error().Msgf(format, v...) }

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
