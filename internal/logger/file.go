package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// Rotation limits for the run log
const (
	maxLogSizeMB  = 10
	maxLogBackups = 5
	maxLogAgeDays = 30
)

// FileLogger appends run records to a rotating log file.
// Records use the console format without colors. It is thread-safe.
type FileLogger struct {
	path     string
	out      io.WriteCloser
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to path through a lumberjack
// rotating writer. The parent directory is created if it doesn't exist.
func NewFileLogger(path string, logLevel string) (*FileLogger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fl := &FileLogger{
		path: path,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		},
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write("=== ccinsights Run Log ===\n")
	fl.write(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Path returns the active log file
func (fl *FileLogger) Path() string {
	return fl.path
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogProgress records only the final file; the file log has no use for a bar
func (fl *FileLogger) LogProgress(done, total int) {
	if done == total && total > 0 {
		fl.LogDebug(fmt.Sprintf("Parsed %d/%d log files", done, total))
	}
}

// LogSummary writes the run summary and every health finding
func (fl *FileLogger) LogSummary(doc *behavioral.Document) {
	if doc == nil || !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] === Usage Summary ===\n", ts)
	for _, line := range summaryLines(doc) {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}
	fmt.Fprintf(&sb, "[%s] Fingerprint: %s\n", ts, doc.Meta.Fingerprint)
	for _, rec := range doc.Health.Recommendations {
		fmt.Fprintf(&sb, "[%s]   - %s [%s] %s (%s)\n", ts,
			strings.ToUpper(string(rec.Severity)), rec.Rule, rec.Message, rec.AffectedEntity)
	}
	fl.write(sb.String())
}

// Close closes the underlying log file.
// It should be called when the logger is no longer needed.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.out == nil {
		return nil
	}
	err := fl.out.Close()
	fl.out = nil
	if err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}

// write is a thread-safe helper to append to the run log.
func (fl *FileLogger) write(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.out != nil {
		io.WriteString(fl.out, message)
	}
}
