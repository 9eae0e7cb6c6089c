// Package loggingtest provides a ServiceLogger that records entries.
package loggingtest

import (
	"sync"

	"github.com/drblury/mediabridge/internal/runtime/logging"
)

// Entry is one recorded log line.
type Entry struct {
	Level  string
	Msg    string
	Err    error
	Fields logging.LogFields
}

// Logger records every entry, including those of derived loggers.
type Logger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  logging.LogFields
}

// New returns an empty recording logger.
func New() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *Logger) With(fields logging.LogFields) logging.ServiceLogger {
	merged := make(logging.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *Logger) Debug(msg string, fields logging.LogFields) { l.add("debug", msg, nil, fields) }
func (l *Logger) Info(msg string, fields logging.LogFields)  { l.add("info", msg, nil, fields) }
func (l *Logger) Warn(msg string, fields logging.LogFields)  { l.add("warn", msg, nil, fields) }
func (l *Logger) Trace(msg string, fields logging.LogFields) { l.add("trace", msg, nil, fields) }

func (l *Logger) Error(msg string, err error, fields logging.LogFields) {
	l.add("error", msg, err, fields)
}

func (l *Logger) add(level, msg string, err error, fields logging.LogFields) {
	merged := make(logging.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.mu.Lock()
	*l.entries = append(*l.entries, Entry{Level: level, Msg: msg, Err: err, Fields: merged})
	l.mu.Unlock()
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), (*l.entries)...)
}

// Level returns the entries logged at level.
func (l *Logger) Level(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many entries were logged at level.
func (l *Logger) Count(level string) int {
	return len(l.Level(level))
}

// Reset drops every recorded entry.
func (l *Logger) Reset() {
	l.mu.Lock()
	*l.entries = nil
	l.mu.Unlock()
}

var _ logging.ServiceLogger = (*Logger)(nil)
