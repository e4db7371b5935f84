package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"jobs-scraper/internal/logging/types"
)

// core holds the state shared by a logger and every child derived from it
type core struct {
	adapters []types.LogAdapter
	level    LogLevel
	mu       sync.RWMutex
}

// MultiLogger is the main implementation of the Logger interface
type MultiLogger struct {
	core   *core
	fields map[string]interface{}
}

// NewMultiLogger creates a MultiLogger with no adapters at info level
func NewMultiLogger() *MultiLogger {
	return &MultiLogger{
		core:   &core{level: InfoLevel},
		fields: make(map[string]interface{}),
	}
}

// Debug logs a debug message
func (l *MultiLogger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DebugLevel, message, fields...)
}

// Info logs an info message
func (l *MultiLogger) Info(message string, fields ...map[string]interface{}) {
	l.log(InfoLevel, message, fields...)
}

// Warn logs a warning message
func (l *MultiLogger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WarnLevel, message, fields...)
}

// Error logs an error message
func (l *MultiLogger) Error(message string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, message, fields...)
}

func (l *MultiLogger) log(level LogLevel, message string, fields ...map[string]interface{}) {
	l.core.mu.RLock()
	defer l.core.mu.RUnlock()

	if level < l.core.level {
		return
	}

	entry := &types.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    l.mergeFields(fields...),
	}

	for _, adapter := range l.core.adapters {
		if err := adapter.Write(entry); err != nil {
			// stderr, so a broken adapter cannot recurse into the logger
			fmt.Fprintf(os.Stderr, "logging adapter %s error: %v\n", adapter.Name(), err)
		}
	}
}

// WithField returns a child logger that always carries the given field
func (l *MultiLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger that always carries the given fields
func (l *MultiLogger) WithFields(fields map[string]interface{}) Logger {
	return &MultiLogger{
		core:   l.core,
		fields: l.mergeFields(fields),
	}
}

// SetLevel sets the minimum log level
func (l *MultiLogger) SetLevel(level LogLevel) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

// GetLevel returns the current log level
func (l *MultiLogger) GetLevel() LogLevel {
	l.core.mu.RLock()
	defer l.core.mu.RUnlock()
	return l.core.level
}

// AddAdapter adds a new log adapter; names must be unique
func (l *MultiLogger) AddAdapter(adapter types.LogAdapter) error {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()

	for _, existing := range l.core.adapters {
		if existing.Name() == adapter.Name() {
			return fmt.Errorf("adapter %s already exists", adapter.Name())
		}
	}

	l.core.adapters = append(l.core.adapters, adapter)
	return nil
}

// Close closes all adapters
func (l *MultiLogger) Close() error {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()

	var errs []string
	for _, adapter := range l.core.adapters {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("adapter %s: %v", adapter.Name(), err))
		}
	}
	l.core.adapters = nil

	if len(errs) > 0 {
		return fmt.Errorf("failed to close adapters: %s", strings.Join(errs, ", "))
	}
	return nil
}

// mergeFields merges the logger's fields with additional fields
func (l *MultiLogger) mergeFields(additional ...map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	for _, m := range additional {
		for k, v := range m {
			fields[k] = v
		}
	}
	return fields
}

// ParseLogLevel parses a string log level into LogLevel
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
