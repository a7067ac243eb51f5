package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	return string(data)
}

// TestFileLoggerCreatesDirectory verifies the parent directory is created on initialization
func TestFileLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "run.log")
	logger, err := NewFileLogger(path, "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}
	if !strings.Contains(readLog(t, path), "=== ccinsights Run Log ===") {
		t.Error("run log header missing")
	}
}

func TestFileLoggerEmptyPath(t *testing.T) {
	if _, err := NewFileLogger(" ", "info"); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFileLoggerLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := NewFileLogger(path, "warn")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.LogDebug("hidden debug")
	logger.LogInfo("hidden info")
	logger.LogWarn("visible warn")
	logger.LogError("visible error")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content := readLog(t, path)
	if strings.Contains(content, "hidden") {
		t.Errorf("messages below warn were written:\n%s", content)
	}
	for _, want := range []string{"[WARN] visible warn", "[ERROR] visible error"} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "\x1b[") {
		t.Error("file log contains color codes")
	}
}

func TestFileLoggerSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := NewFileLogger(path, "debug")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.LogProgress(1, 2)
	logger.LogProgress(2, 2)
	logger.LogSummary(sampleDocument())
	logger.Close()

	content := readLog(t, path)
	for _, want := range []string{
		"Parsed 2/2 log files",
		"Sessions: 3",
		"Fingerprint: abc",
		"WARNING [unused-mcp-server] gmail unused (gmail)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "Parsed 1/2") {
		t.Error("intermediate progress written to file log")
	}
}

func TestFileLoggerCloseTwice(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "run.log"), "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	logger.LogInfo("after close")
}

func TestMultiLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	file, err := NewFileLogger(path, "info")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	buf := &bytes.Buffer{}
	multi := NewMultiLogger(NewConsoleLogger(buf, "info"), file, nil)

	multi.LogInfo("to both")
	multi.LogDebug("to neither")
	multi.LogSummary(sampleDocument())
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for name, out := range map[string]string{"console": buf.String(), "file": readLog(t, path)} {
		if !strings.Contains(out, "[INFO] to both") {
			t.Errorf("%s output missing info line:\n%s", name, out)
		}
		if strings.Contains(out, "to neither") {
			t.Errorf("%s output contains debug line", name)
		}
		if !strings.Contains(out, "=== Usage Summary ===") {
			t.Errorf("%s output missing summary", name)
		}
	}
}
