package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, component string, opts ...Option) *Logger {
	t.Helper()
	opts = append([]Option{WithDir(t.TempDir())}, opts...)
	logger, err := New(component, opts...)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	content, err := os.ReadFile(l.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNew(t *testing.T) {
	logger := newTestLogger(t, "test-component")

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}
	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if _, err := os.Stat(logger.LogPath()); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.LogPath())
	}
}

func TestLoggerFormatting(t *testing.T) {
	logger := newTestLogger(t, "test")

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	logContent := readLog(t, logger)
	expectedPatterns := []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 123",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	}
	for _, pattern := range expectedPatterns {
		if !strings.Contains(logContent, pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, logContent)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	logger := newTestLogger(t, "test", WithLevel(LevelWarn))

	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("shown warning")

	logContent := readLog(t, logger)
	if strings.Contains(logContent, "hidden") {
		t.Errorf("Messages below the level were written:\n%s", logContent)
	}
	if !strings.Contains(logContent, "shown warning") {
		t.Errorf("Warning missing:\n%s", logContent)
	}
}

func TestWithSharesSession(t *testing.T) {
	root := newTestLogger(t, "brain")
	child := root.With("scheduler")

	if root.SessionID() != child.SessionID() {
		t.Errorf("Expected same session ID, got %q and %q", root.SessionID(), child.SessionID())
	}
	if root.LogPath() != child.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", root.LogPath(), child.LogPath())
	}

	root.Infof("Message from brain")
	child.Infof("Message from scheduler")

	logContent := readLog(t, root)
	if !strings.Contains(logContent, "[brain]") || !strings.Contains(logContent, "[scheduler]") {
		t.Errorf("Log missing component entries:\n%s", logContent)
	}
}

func TestLogPathFormat(t *testing.T) {
	logger := newTestLogger(t, "test", WithSessionID("fixed-session"))

	if got := filepath.Base(logger.LogPath()); got != "fixed-session-synapse.log" {
		t.Errorf("Expected fixed-session-synapse.log, got %q", got)
	}

	generated := newTestLogger(t, "test")
	sessionPart := strings.TrimSuffix(filepath.Base(generated.LogPath()), "-synapse.log")
	if strings.Count(sessionPart, "-") != 4 {
		t.Errorf("Expected a UUID session ID, got %q", sessionPart)
	}
}

func TestFallback(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger, err := New("test", WithDir(filepath.Join(blocker, "logs")), WithFallback(&buf))
	if err == nil {
		t.Fatal("Expected an error when the directory cannot be created")
	}
	if logger == nil {
		t.Fatal("Expected a fallback logger")
	}
	if logger.LogPath() != "" {
		t.Errorf("Expected empty log path in fallback mode, got %q", logger.LogPath())
	}

	logger.Infof("still logging")
	if !strings.Contains(buf.String(), "Falling back to stderr logging") || !strings.Contains(buf.String(), "still logging") {
		t.Errorf("Unexpected fallback output:\n%s", buf.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close in fallback mode failed: %v", err)
	}
}

func TestLoggerClose(t *testing.T) {
	logger, err := New("test", WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.With("other").Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"debug": LevelDebug, "": LevelDebug, "INFO": LevelInfo, "warning": LevelWarn, "error": LevelError}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestStageLog(t *testing.T) {
	logger := newTestLogger(t, "pipeline")
	obs := StageLog{Logger: logger}

	obs.StageStarted("run-1", "sensory")
	obs.StageFinished("run-1", "sensory", 1500*time.Microsecond, nil)
	obs.StageFinished("run-1", "logic", time.Second, errors.New("rate limited"))

	logContent := readLog(t, logger)
	for _, pattern := range []string{
		"[DEBUG] run run-1: stage sensory started",
		"[INFO] run run-1: stage sensory finished in 2ms",
		"[ERROR] run run-1: stage logic failed after 1s: rate limited",
	} {
		if !strings.Contains(logContent, pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, logContent)
		}
	}
}
