// Package logging provides component-scoped file logging for a session.
//
// Every logger created for one session writes to
// <dir>/<session-id>-synapse.log. When the directory or file cannot be
// opened the logger falls back to stderr and the error is returned
// alongside it, so callers can warn and carry on.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is a log severity.
type Level int

// Levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel parses "debug", "info", "warn"/"warning" or "error".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelDebug, fmt.Errorf("logging: unknown level %q", s)
	}
}

// DefaultDir returns ~/.synapse/logs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".synapse", "logs"), nil
}

// sink is the file (or stderr) shared by every logger of a session.
type sink struct {
	mu        sync.Mutex
	logger    *log.Logger
	file      *os.File
	closeOnce sync.Once
}

// Logger writes "[timestamp] [component] [LEVEL] message" lines.
type Logger struct {
	sessionID string
	component string
	logPath   string
	level     Level
	sink      *sink
	now       func() time.Time
}

type options struct {
	dir       string
	sessionID string
	level     Level
	fallback  io.Writer
}

// Option configures New.
type Option func(*options)

// WithDir sets the log directory. The default is DefaultDir.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithSessionID fixes the session id instead of generating a UUID.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithLevel drops messages below level.
func WithLevel(level Level) Option {
	return func(o *options) { o.level = level }
}

// WithFallback replaces stderr as the fallback destination.
func WithFallback(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.fallback = w
		}
	}
}

// New creates the root logger for a session.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func New(component string, opts ...Option) (*Logger, error) {
	o := options{fallback: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.New().String()
	}

	l := &Logger{
		sessionID: o.sessionID,
		component: component,
		level:     o.level,
		now:       time.Now,
	}

	dir := o.dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return l.fallback(o.fallback, err), err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return l.fallback(o.fallback, err), err
	}

	logPath := filepath.Join(dir, fmt.Sprintf("%s-synapse.log", o.sessionID))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return l.fallback(o.fallback, err), err
	}

	l.logPath = logPath
	l.sink = &sink{logger: log.New(file, "", 0), file: file}
	return l, nil
}

func (l *Logger) fallback(w io.Writer, err error) *Logger {
	l.sink = &sink{logger: log.New(w, "", 0)}
	l.sink.logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	l.sink.logger.Printf("Falling back to stderr logging")
	return l
}

// With returns a logger for another component sharing this session's file.
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	entry := fmt.Sprintf("[%s] [%s] [%s] %s",
		l.now().Format("2006-01-02 15:04:05.000"), l.component, level, fmt.Sprintf(format, v...))

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.logger.Println(entry)
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write(LevelDebug, format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write(LevelInfo, format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write(LevelWarn, format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write(LevelError, format, v...) }

// SessionID returns the session id.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the log file path, or "" in fallback mode.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times and from any
// logger of the session.
func (l *Logger) Close() error {
	var err error
	l.sink.closeOnce.Do(func() {
		if l.sink.file != nil {
			err = l.sink.file.Close()
		}
	})
	return err
}

// StageLog reports pipeline stage lifecycle events to a Logger.
type StageLog struct {
	Logger *Logger
}

// StageStarted logs a stage start at debug level.
func (s StageLog) StageStarted(runID, stageID string) {
	s.Logger.Debugf("run %s: stage %s started", runID, stageID)
}

// StageFinished logs a stage result; failures at error level.
func (s StageLog) StageFinished(runID, stageID string, elapsed time.Duration, err error) {
	if err != nil {
		s.Logger.Errorf("run %s: stage %s failed after %s: %v", runID, stageID, elapsed.Round(time.Millisecond), err)
		return
	}
	s.Logger.Infof("run %s: stage %s finished in %s", runID, stageID, elapsed.Round(time.Millisecond))
}
