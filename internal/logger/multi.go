package logger

import (
	"errors"
	"io"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// RunLogger is implemented by every logger in this package
type RunLogger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogProgress(done, total int)
	LogSummary(doc *behavioral.Document)
}

var (
	_ RunLogger                 = (*ConsoleLogger)(nil)
	_ RunLogger                 = (*FileLogger)(nil)
	_ RunLogger                 = (*NoOpLogger)(nil)
	_ RunLogger                 = (*MultiLogger)(nil)
	_ behavioral.ProgressLogger = (*MultiLogger)(nil)
)

// MultiLogger fans every record out to a list of loggers
type MultiLogger struct {
	loggers []RunLogger
}

// NewMultiLogger combines loggers; nil entries are dropped
func NewMultiLogger(loggers ...RunLogger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogProgress(done, total int) {
	for _, l := range m.loggers {
		l.LogProgress(done, total)
	}
}

func (m *MultiLogger) LogSummary(doc *behavioral.Document) {
	for _, l := range m.loggers {
		l.LogSummary(doc)
	}
}

// Close closes every logger that holds a resource
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if c, ok := l.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
