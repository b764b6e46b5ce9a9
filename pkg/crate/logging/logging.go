// Package logging provides component loggers backed by charmbracelet/log.
//
// Every logger writes to a rotating file sink. The CLI can additionally tee
// records to stderr or to any writer it injects, which keeps the core
// packages free of output concerns:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("resolve")
//	logger.Info("moved duplicate", "path", p, "target", dst)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned for unrecognized level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	// Rotation configures file rotation.
	Rotation RotationConfig

	// Components overrides the level per component name.
	Components map[string]string

	// ConsoleLevel tees records at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string

	// Tee, when set, receives a copy of every record at ConsoleLevel or
	// above (info when ConsoleLevel is empty). It replaces stderr as the
	// console sink.
	Tee io.Writer
}

// Logger is a component-scoped logger writing to the file sink and, when
// configured, to the console sink.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
	fields    []interface{}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(LevelWarn, msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args...) }

// Component returns the name the logger was created with.
func (l *Logger) Component() string { return l.component }

// With returns a logger that adds the key/value pairs to every record.
func (l *Logger) With(args ...interface{}) *Logger {
	out := &Logger{
		file:      l.file.With(args...),
		component: l.component,
		fields:    append(l.fields[:len(l.fields):len(l.fields)], args...),
	}
	if l.console != nil {
		out.console = l.console.With(args...)
	}
	return out
}

func (l *Logger) emit(level Level, msg string, args ...interface{}) {
	// loggers handed out before Init are rebuilt in place by Init, so read
	// the sinks under the lock.
	globalState.mu.RLock()
	file, console := l.file, l.console
	buffers := globalState.buffers
	globalState.mu.RUnlock()

	write(file, level, msg, args...)
	if console != nil {
		write(console, level, msg, args...)
	}
	if len(buffers) > 0 {
		e := Entry{
			Time:      time.Now(),
			Level:     level,
			Component: l.component,
			Message:   msg,
			Fields:    append(l.fields[:len(l.fields):len(l.fields)], args...),
		}
		for _, b := range buffers {
			b.Add(e)
		}
	}
}

func write(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger

	console      io.Writer
	consoleLevel Level

	buffers []*Buffer
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// Init configures the logging system. Loggers obtained from Get before Init
// write to io.Discard and are redirected once Init succeeds.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var console io.Writer
	consoleLevel := LevelInfo
	if cfg.ConsoleLevel != "" || cfg.Tee != nil {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = cfg.Tee
		if console == nil {
			console = os.Stderr
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.writer != nil {
		_ = globalState.writer.Close()
	}

	globalState.writer = writer
	globalState.level = level
	globalState.components = components
	globalState.console = console
	globalState.consoleLevel = consoleLevel
	globalState.initialized = true

	for _, logger := range globalState.loggers {
		globalState.configure(logger)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	globalState.mu.RLock()
	logger, ok := globalState.loggers[component]
	globalState.mu.RUnlock()
	if ok {
		return logger
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}
	logger = &Logger{component: component}
	globalState.configure(logger)
	globalState.loggers[component] = logger
	return logger
}

// configure (re)builds a logger's sinks from the current state.
// The caller holds s.mu for writing.
func (s *state) configure(l *Logger) {
	level := s.level
	if lvl, ok := s.components[l.component]; ok {
		level = lvl
	}

	if !s.initialized {
		l.file = log.NewWithOptions(io.Discard, log.Options{Level: level.charm(), Prefix: l.component})
		l.console = nil
		return
	}

	l.file = log.NewWithOptions(s.writer, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          l.component,
	})

	l.console = nil
	if s.console != nil {
		l.console = log.NewWithOptions(s.console, log.Options{
			Level:           s.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          l.component,
		})
	}
}

// Close flushes the log file and returns every logger to io.Discard.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	var err error
	if globalState.writer != nil {
		err = globalState.writer.Close()
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.console = nil
	globalState.components = make(map[string]Level)
	for _, logger := range globalState.loggers {
		globalState.configure(logger)
	}

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/crate/crate.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "crate", "crate.log")
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
