// Package logging wraps log/slog for the keyboard. Attribute values that may
// hold typed text are redacted before they reach any output, and file output
// is rotated by size.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var formatNames = map[string]Format{
	"":     FormatText,
	"text": FormatText,
	"json": FormatJSON,
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[strings.ToLower(s)]; ok {
		return l, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// ParseFormat accepts "text", "json" or the empty string.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	return FormatText, fmt.Errorf("unknown log format: %q", s)
}

// LevelString is the inverse of ParseLevel.
func LevelString(level Level) string {
	return strings.ToLower(level.String())
}

// Config describes where and how a Logger writes.
type Config struct {
	Level  Level
	Format Format

	// Output is "stdout", "stderr", "file", "both" (stderr and file) or
	// "discard". Writer, when set, takes precedence.
	Output string
	Writer io.Writer

	// File output settings. MaxSize is in megabytes.
	FilePath   string
	MaxSize    int64
	MaxBackups int
	Compress   bool

	AddSource bool

	// Component is attached to every record as "component".
	Component string
}

// DefaultConfig logs info and above as text to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   DefaultLogPath(),
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
		Component:  "maliit-keyboard",
	}
}

// DefaultLogPath is keyboard.log under the XDG state directory.
func DefaultLogPath() string {
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		home, _ := os.UserHomeDir()
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "maliit-keyboard", "keyboard.log")
}

// Logger is a slog.Logger that owns its log file, if any.
type Logger struct {
	*slog.Logger

	mu      sync.Mutex
	rotator *FileRotator
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating it from DefaultConfig on
// first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		l, err := New(nil)
		if err != nil {
			l = &Logger{Logger: slog.Default()}
		}
		defaultLogger = l
	}
	return defaultLogger
}

// OrDefault returns l, or Default() when l is nil.
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return Default()
	}
	return l
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// New builds a Logger from cfg. A nil cfg means DefaultConfig().
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	w, rotator, err := openOutput(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup writers: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactAttr,
	}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}
	return &Logger{Logger: slog.New(h), rotator: rotator}, nil
}

func openOutput(cfg *Config) (io.Writer, *FileRotator, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil, nil
	}

	output := strings.ToLower(cfg.Output)
	switch output {
	case "stdout":
		return os.Stdout, nil, nil
	case "discard":
		return io.Discard, nil, nil
	case "file", "both":
		r, err := NewFileRotator(cfg)
		if err != nil {
			return nil, nil, err
		}
		if output == "both" {
			return io.MultiWriter(os.Stderr, r), r, nil
		}
		return r, r, nil
	}
	return os.Stderr, nil, nil
}

// Attribute keys whose values may be user input.
var sensitiveKeys = []string{
	"text", "preedit", "word", "candidate", "surrounding", "commit",
}

func shouldRedact(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// redactAttr replaces sensitive values. String values keep their rune count
// so cursor arithmetic can still be followed in the log.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if !shouldRedact(a.Key) {
		return a
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindString {
		a.Value = slog.StringValue(fmt.Sprintf("[REDACTED len=%d]", len([]rune(v.String()))))
	} else {
		a.Value = slog.StringValue("[REDACTED]")
	}
	return a
}

// WithComponent returns a logger that tags records with name. It shares the
// log file of l.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(slog.String("component", name)),
		rotator: l.rotator,
	}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
