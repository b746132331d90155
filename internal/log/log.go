package log

import (
	"io"
	"log"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
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
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

func LevelFromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "NONE", "OFF":
		return LevelNone
	default:
		return LevelInfo
	}
}

// Logger is shared by every component of the engine. Components derive a
// tagged child with With so each line carries a "[TAG]" prefix.
type Logger struct {
	logger *log.Logger
	mu     *sync.RWMutex
	level  *Level
	tag    string
}

func New(out io.Writer, level Level) *Logger {
	lvl := level
	return &Logger{
		logger: log.New(out, "", log.Ltime|log.Lmicroseconds),
		mu:     &sync.RWMutex{},
		level:  &lvl,
	}
}

// Discard returns a logger that never writes.
func Discard() *Logger {
	return New(io.Discard, LevelNone)
}

// With returns a logger sharing the output and level of l whose lines are
// prefixed with "[tag] ".
func (l *Logger) With(tag string) *Logger {
	child := *l
	child.tag = "[" + strings.ToUpper(tag) + "] "
	return &child
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.level <= level
}

func (l *Logger) printf(prefix, format string, v ...interface{}) {
	l.logger.Printf(prefix+l.tag+format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.printf("DEBUG: ", format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.printf("INFO: ", format, v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.printf("WARN: ", format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.printf("ERROR: ", format, v...)
	}
}

// SetLevel changes the level for l and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	*l.level = level
	l.mu.Unlock()
}

func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.level
}
