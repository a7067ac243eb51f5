// Package logger provides logging implementations for ccinsights runs.
//
// Loggers report discovery and parsing progress and the final analytics
// summary. Implementations are thread-safe and support console and rotating
// file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// progressSteps is how many progress lines a run prints at most
const progressSteps = 10

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should get colors.
// NO_COLOR (via color.NoColor) disables colors everywhere.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info" // Default level
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogProgress logs log-file ingestion progress at INFO level, at most
// progressSteps times per run plus the final file.
// Format: "[HH:MM:SS] Parsing: [=====     ] 4/8 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !cl.shouldLog("info") || !progressDue(done, total) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.SetPrefix("Parsing: ")
	pb.Update(done)
	cl.writer.Write([]byte(fmt.Sprintf("[%s] %s\n", timestamp(), pb.Render())))
}

// progressDue reports whether file done of total gets a progress line
func progressDue(done, total int) bool {
	if total <= 0 || done <= 0 {
		return false
	}
	if done == total {
		return true
	}
	step := total / progressSteps
	if step < 1 {
		step = 1
	}
	return done%step == 0
}

// LogSummary logs the run summary at INFO level.
// Format: "[HH:MM:SS] === Usage Summary ===" followed by one line per metric
func (cl *ConsoleLogger) LogSummary(doc *behavioral.Document) {
	if cl.writer == nil || doc == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var sb strings.Builder
	if cl.colorOutput {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, color.New(color.Bold).Sprint("=== Usage Summary ==="))
		fmt.Fprintf(&sb, "[%s] %s\n", ts, formatColorizedSummary(doc))
	} else {
		fmt.Fprintf(&sb, "[%s] === Usage Summary ===\n", ts)
		for _, line := range summaryLines(doc) {
			fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
		}
	}

	for _, rec := range doc.Health.Recommendations {
		text := fmt.Sprintf("%s: %s", strings.ToUpper(string(rec.Severity)), rec.Message)
		if cl.colorOutput {
			text = severityColor(rec.Severity).Sprint(text)
		}
		fmt.Fprintf(&sb, "[%s]   - %s\n", ts, text)
	}
	cl.writer.Write([]byte(sb.String()))
}

// summaryLines is the plain-text rendering of the summary metrics
func summaryLines(doc *behavioral.Document) []string {
	return []string{
		fmt.Sprintf("Sessions: %d", doc.Meta.Sessions),
		fmt.Sprintf("Events: %d", doc.Meta.Events),
		fmt.Sprintf("Skipped lines: %d", doc.Meta.SkippedTotal),
		fmt.Sprintf("Tokens: %d", doc.Tokens.TotalTokens),
		fmt.Sprintf("Cost: $%.2f", doc.Tokens.TotalCost),
		fmt.Sprintf("Tool calls: %d", doc.Tools.TotalCalls),
		fmt.Sprintf("Findings: %d", len(doc.Health.Recommendations)),
	}
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogProgress(int, int) {}
func (n *NoOpLogger) LogSummary(*behavioral.Document) {}
