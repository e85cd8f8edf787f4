package logx

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages get written
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
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
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields are structured key/value pairs attached to a log line
type Fields map[string]any

var (
	mu       sync.Mutex
	minLevel = LevelInfo
	output   = os.Stdout
)

// SetLevel sets the minimum level that gets logged
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

func write(l Level, fields Fields, msg string) {
	mu.Lock()
	defer mu.Unlock()

	if l < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(l.String())
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
		}
	}

	fmt.Fprintln(output, b.String())

	if l == LevelFatal {
		os.Exit(1)
	}
}

func Debug(msg string)                  { write(LevelDebug, nil, msg) }
func Debugf(format string, args ...any) { write(LevelDebug, nil, fmt.Sprintf(format, args...)) }
func Info(msg string)                   { write(LevelInfo, nil, msg) }
func Infof(format string, args ...any)  { write(LevelInfo, nil, fmt.Sprintf(format, args...)) }
func Warn(msg string)                   { write(LevelWarn, nil, msg) }
func Warnf(format string, args ...any)  { write(LevelWarn, nil, fmt.Sprintf(format, args...)) }
func Error(msg string)                  { write(LevelError, nil, msg) }
func Errorf(format string, args ...any) { write(LevelError, nil, fmt.Sprintf(format, args...)) }
func Fatal(msg string)                  { write(LevelFatal, nil, msg) }
func Fatalf(format string, args ...any) { write(LevelFatal, nil, fmt.Sprintf(format, args...)) }

// Entry is a log line builder carrying structured fields
type Entry struct {
	fields Fields
}

// WithFields starts an entry with structured fields
func WithFields(fields Fields) *Entry {
	copied := make(Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Entry{fields: copied}
}

// WithField adds a single field to the entry
func (e *Entry) WithField(key string, value any) *Entry {
	e.fields[key] = value
	return e
}

func (e *Entry) Debug(msg string)                  { write(LevelDebug, e.fields, msg) }
func (e *Entry) Debugf(format string, args ...any) { write(LevelDebug, e.fields, fmt.Sprintf(format, args...)) }
func (e *Entry) Info(msg string)                   { write(LevelInfo, e.fields, msg) }
func (e *Entry) Infof(format string, args ...any)  { write(LevelInfo, e.fields, fmt.Sprintf(format, args...)) }
func (e *Entry) Warn(msg string)                   { write(LevelWarn, e.fields, msg) }
func (e *Entry) Warnf(format string, args ...any)  { write(LevelWarn, e.fields, fmt.Sprintf(format, args...)) }
func (e *Entry) Error(msg string)                  { write(LevelError, e.fields, msg) }
func (e *Entry) Errorf(format string, args ...any) { write(LevelError, e.fields, fmt.Sprintf(format, args...)) }
