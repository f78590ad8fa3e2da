// Package logging gives each hashsweep component a named logger backed by
// charmbracelet/log. Entries go to a rotating file under the XDG state
// directory; mirroring them to stderr is opt-in so reports on stdout are
// never interleaved with log lines.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("checker").Info("Verifying manifest", "entries", 42)
//
// Loggers may be obtained at package init time. They drop entries until
// Init runs and again after Close.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a log severity.
type Level = log.Level

// Supported levels.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel is returned for an unrecognized level name.
var ErrInvalidLevel = errors.New("invalid log level")

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures Init.
type Config struct {
	// Level applies to every component without an override.
	Level string

	// Path is the log file. Empty means DefaultLogPath.
	Path string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel mirrors entries at or above this level to stderr.
	// Empty keeps the console quiet.
	ConsoleLevel string
}

// DefaultConfig returns info-level logging to DefaultLogPath.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

// DefaultLogPath is $XDG_STATE_HOME/hashsweep/hashsweep.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "hashsweep", "hashsweep.log")
}

// backend is one Init's worth of sinks. It is replaced wholesale, never
// mutated, apart from its lazily filled per-component cache.
type backend struct {
	writer     *RotatingWriter
	console    io.Writer
	level      Level
	consoleLvl Level
	overrides  map[string]Level
	cache      sync.Map // component -> *sinks
}

type sinks struct {
	file    *log.Logger
	console *log.Logger
}

var (
	current atomic.Pointer[backend]
	initMu  sync.Mutex

	loggersMu sync.Mutex
	loggers   = map[string]*Logger{}
)

// Init opens the log file and activates every logger. A second Init closes
// the previous file first.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	overrides := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("component %s: %w", comp, err)
		}
		overrides[comp] = lvl
	}

	b := &backend{level: level, overrides: overrides}
	if cfg.ConsoleLevel != "" {
		if b.consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("console: %w", err)
		}
		b.console = os.Stderr
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	initMu.Lock()
	defer initMu.Unlock()

	if err := shutdown(); err != nil {
		return err
	}
	if b.writer, err = NewRotatingWriter(path, cfg.Rotation); err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	current.Store(b)
	return nil
}

// Close deactivates all loggers and closes the log file.
func Close() error {
	initMu.Lock()
	defer initMu.Unlock()
	return shutdown()
}

func shutdown() error {
	b := current.Swap(nil)
	if b == nil || b.writer == nil {
		return nil
	}
	if err := b.writer.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

func (b *backend) sinksFor(component string) *sinks {
	if s, ok := b.cache.Load(component); ok {
		return s.(*sinks)
	}

	level := b.level
	if lvl, ok := b.overrides[component]; ok {
		level = lvl
	}

	s := &sinks{
		file: log.NewWithOptions(b.writer, log.Options{
			Level:           level,
			Prefix:          component,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
		}),
	}
	if b.console != nil {
		s.console = log.NewWithOptions(b.console, log.Options{
			Level:           b.consoleLvl,
			Prefix:          component,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	}

	actual, _ := b.cache.LoadOrStore(component, s)
	return actual.(*sinks)
}

// Logger writes entries for one component.
type Logger struct {
	component string
	fields    []interface{}
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := &Logger{component: component}
	loggers[component] = l
	return l
}

// With returns a logger that adds keyvals to every entry.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals...)
	return &Logger{component: l.component, fields: fields}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(LevelDebug, msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.emit(LevelInfo, msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.emit(LevelWarn, msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(LevelError, msg, keyvals) }

func (l *Logger) emit(level Level, msg string, keyvals []interface{}) {
	b := current.Load()
	if b == nil {
		return
	}
	if len(l.fields) > 0 {
		keyvals = append(append([]interface{}{}, l.fields...), keyvals...)
	}

	s := b.sinksFor(l.component)
	s.file.Log(level, msg, keyvals...)
	if s.console != nil {
		s.console.Log(level, msg, keyvals...)
	}
}
