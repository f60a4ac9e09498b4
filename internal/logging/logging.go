// Package logging provides leveled, component-tagged logging with file output and rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	levelOff
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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is a key-value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	File       string `mapstructure:"file"`        // log file path (empty = default under the config dir)
	Console    bool   `mapstructure:"console"`     // also write to stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after this size (default: 10)
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to keep (default: 5)
}

// DefaultConfig returns default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger writes structured lines of the form
//
//	2026-01-02T15:04:05Z [INFO] [ledger] message | key=value
//
// to stderr and/or a size-rotated file.
type Logger struct {
	mu         sync.Mutex
	level      Level
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	console    io.Writer
	now        func() time.Time
}

// New creates a Logger from cfg, creating the log directory when needed.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:      ParseLevel(cfg.Level),
		maxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		now:        time.Now,
	}
	if cfg.Console {
		l.console = os.Stderr
	}
	if l.maxSize <= 0 {
		l.maxSize = 10 * 1024 * 1024
	}
	if l.maxBackups <= 0 {
		l.maxBackups = 5
	}

	path, err := resolvePath(cfg.File)
	if err != nil {
		return nil, err
	}
	l.filePath = path

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWriter creates a Logger that writes only to w. Used by tests and the CLI
// when file logging is unwanted.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{level: level, console: w, now: time.Now}
}

// Nop returns a logger that discards all output.
func Nop() *Logger {
	return &Logger{level: levelOff, now: time.Now}
}

func resolvePath(file string) (string, error) {
	if file == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("unable to get config dir: %w", err)
		}
		return filepath.Join(configDir, "mediastats", "logs", "mediastats.log"), nil
	}
	if strings.HasPrefix(file, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to get home dir: %w", err)
		}
		return filepath.Join(home, file[1:]), nil
	}
	return file, nil
}

func (l *Logger) openFile() error {
	if l.filePath == "" {
		return nil
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	l.file = f
	return nil
}

func (l *Logger) rotateIfNeeded() error {
	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxSize {
		return nil
	}
	l.file.Close()
	l.file = nil
	if err := rotateFiles(l.filePath, l.maxBackups); err != nil {
		return err
	}
	return l.openFile()
}

func (l *Logger) enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) log(level Level, component, msg string, err error, fields ...Field) {
	if !l.enabled(level) {
		return
	}

	var sb strings.Builder
	sb.WriteString(l.now().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)
	if err != nil {
		sb.WriteString(" | error=")
		sb.WriteString(err.Error())
	}
	for _, f := range fields {
		fmt.Fprintf(&sb, " | %s=%v", f.Key, f.Value)
	}
	sb.WriteByte('\n')
	line := []byte(sb.String())

	l.mu.Lock()
	defer l.mu.Unlock()

	if rotErr := l.rotateIfNeeded(); rotErr != nil {
		fmt.Fprintf(os.Stderr, "log rotation error: %v\n", rotErr)
	}
	if l.console != nil {
		l.console.Write(line)
	}
	if l.file != nil {
		l.file.Write(line)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(LevelDebug, component, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(LevelInfo, component, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(LevelWarn, component, msg, nil, fields...)
}

// Error logs an error message with an error
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(LevelError, component, msg, err, fields...)
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// FilePath returns the log file path, empty for writer-only loggers.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
