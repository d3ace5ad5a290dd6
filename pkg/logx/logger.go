package logx

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes leveled, structured records through a Formatter. It is safe
// for concurrent use.
type Logger struct {
	mu        sync.Mutex
	level     Level
	formatter Formatter
	out       io.Writer
}

// NewLogger creates a Logger with an explicit threshold, formatter, and sink.
func NewLogger(level Level, formatter Formatter, out io.Writer) *Logger {
	return &Logger{level: level, formatter: formatter, out: out}
}

// SetLevel changes the logger's threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	l.out.Write(l.formatter.Format(Record{
		Time:   time.Now().UTC(),
		Level:  level,
		Msg:    msg,
		Fields: fields,
		Err:    err,
	}))
}

// Entry accumulates fields and an error before emitting one record.
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func (l *Logger) entry() *Entry {
	return &Entry{logger: l, fields: make(Fields)}
}

// WithField adds one field and returns the entry for chaining.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

// WithFields adds every field in fields.
func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError attaches an error to the entry.
func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, e.err) }

// ─── Package-level API over the default logger ───────────────────────────────

var std = fromEnv()

// SetLevel changes the default logger's threshold.
func SetLevel(level Level) { std.SetLevel(level) }

func Debug(msg string) { std.log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { std.log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { std.log(LevelWarn, msg, nil, nil) }
func Error(msg string) { std.log(LevelError, msg, nil, nil) }

func Debugf(format string, args ...interface{}) {
	std.log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...interface{}) {
	std.log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...interface{}) {
	std.log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...interface{}) {
	std.log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs at error level and exits the process.
func Fatalf(format string, args ...interface{}) {
	std.log(LevelError, fmt.Sprintf(format, args...), nil, nil)
	os.Exit(1)
}

// Panicf logs at error level and panics with the same message. Reserved for
// programmer errors (API misuse), never for runtime failures.
func Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	std.log(LevelError, msg, nil, nil)
	panic(msg)
}

// WithField starts an entry on the default logger with one field.
func WithField(key string, value interface{}) *Entry {
	return std.entry().WithField(key, value)
}

// WithFields starts an entry on the default logger with a field set.
func WithFields(fields Fields) *Entry {
	return std.entry().WithFields(fields)
}

// WithError starts an entry on the default logger with an attached error.
func WithError(err error) *Entry {
	return std.entry().WithError(err)
}
