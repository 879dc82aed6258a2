// Package corelog provides the leveled logger shared by the block cache,
// graphics pipeline, and HID interpreter. It formats lines itself onto an
// io.Writer rather than pulling in a structured logging dependency: none of
// the retrieval pack's third-party loggers target a headless embedded core,
// and two sibling projects (go-ublk's internal/logging, agent-task's CLI
// layer) independently settle on the same stdlib-wrapped shape.
package corelog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
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

// Config configures a Logger.
type Config struct {
	Level  Level
	Output io.Writer // nil defaults to os.Stderr
}

// DefaultConfig returns a logger configuration writing INFO and above to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Logger is a leveled, mutex-guarded wrapper around an io.Writer.
type Logger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	color  bool
	prefix string
}

// New constructs a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Logger{level: cfg.Level, out: out, color: color}
}

// WithPrefix returns a copy of l that tags every line with prefix, e.g. a
// component name ("blockcache", "graphicspipeline", "hid").
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{level: l.level, out: l.out, color: l.color, prefix: prefix}
}

func (l *Logger) log(lvl Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	tag := lvl.String()
	if l.color {
		tag = colorize(lvl, tag)
	}
	if l.prefix != "" {
		fmt.Fprintf(l.out, "[%s] %s: %s\n", tag, l.prefix, msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", tag, msg)
}

func colorize(lvl Level, tag string) string {
	code := "36" // cyan
	switch lvl {
	case LevelWarn:
		code = "33"
	case LevelError:
		code = "31"
	}
	return "\x1b[" + code + "m" + tag + "\x1b[0m"
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

var (
	defaultMu  sync.RWMutex
	defaultLog = New(DefaultConfig())
)

// Default returns the package-level default logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLog
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLog = l
}
