package log

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *Logger
	once          sync.Once
)

func init() {
	once.Do(func() {
		defaultLogger = New(os.Stdout, LevelInfo, FormatText)
	})
}

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (level Level) String() string {
	switch level {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel parses a log level string.
// Valid log levels are: error, warn, info, debug, trace.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return LevelError, nil
	case "warn":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return LevelError, fmt.Errorf("unknown log level: %s", level)
	}
}

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %s", format)
	}
}

type Logger struct {
	mu     *sync.Mutex
	logger *log.Logger
	level  *Level
	format Format
	tag    string
}

func New(out io.Writer, level Level, format Format) *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		logger: log.New(out, "", log.Ldate|log.Ltime),
		level:  &level,
		format: format,
	}
}

// Default returns the package logger.
func Default() *Logger {
	return defaultLogger
}

// WithTag returns a child logger that prefixes messages with [TAG]. The child
// shares the output and level of its parent.
func (l *Logger) WithTag(tag string) *Logger {
	child := *l
	child.tag = strings.ToUpper(tag)
	return &child
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	*l.level = level
	l.mu.Unlock()
}

func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level <= *l.level
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	if l.format == FormatJSON {
		entry := map[string]interface{}{
			"level": level.String(),
			"msg":   msg,
		}
		if l.tag != "" {
			entry["tag"] = l.tag
		}
		b, _ := json.Marshal(entry)
		l.logger.Print(string(b))
		return
	}

	if l.tag != "" {
		l.logger.Printf("[%s] [%s] %s", strings.ToUpper(level.String()), l.tag, msg)
		return
	}
	l.logger.Printf("[%s] %s", strings.ToUpper(level.String()), msg)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(LevelTrace, format, args...)
}

// Configure replaces the package logger.
func Configure(out io.Writer, level Level, format Format) {
	defaultLogger = New(out, level, format)
}

func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
	defaultLogger.Info("Log level set to %s", level)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Trace(format string, args ...interface{}) {
	defaultLogger.Trace(format, args...)
}
