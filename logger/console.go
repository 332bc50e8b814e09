package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
)

const (
	reset      = "\033[0m"
	gray       = "\033[1;90m"
	green      = "\033[32m"
	magenta    = "\033[35m"
	red        = "\033[31m"
	purple     = "\u001b[38;5;200m"
	whiteBold  = "\033[37;1m"
	cyanBold   = "\033[36;1m"
	blueBold   = "\033[34;1m"
	yellowBold = "\033[33;1m"
	magBold    = "\033[35;1m"
	redBold    = "\033[31;1m"
)

type palette struct {
	level   string
	message string
}

var palettes = map[LogLevel]palette{
	LevelTrace: {cyanBold, gray},
	LevelDebug: {blueBold, green},
	LevelInfo:  {yellowBold, whiteBold},
	LevelWarn:  {magBold, magenta},
	LevelError: {redBold, red},
}

func useColor(w io.Writer) bool {
	if runtime.GOOS == "windows" || os.Getenv("TERM") == "dumb" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

type consoleLogger struct {
	out      io.Writer
	mu       *sync.Mutex
	color    bool
	prefixes []string
	metadata map[string]interface{}
	logLevel LogLevel
}

var _ Logger = (*consoleLogger)(nil)

func (c *consoleLogger) clone() *consoleLogger {
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return &consoleLogger{
		out:      c.out,
		mu:       c.mu,
		color:    c.color,
		prefixes: slices.Clone(c.prefixes),
		metadata: metadata,
		logLevel: c.logLevel,
	}
}

func (c *consoleLogger) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + reset
}

// WithPrefix will return a new logger with a prefix prepended to the message
func (c *consoleLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	if !slices.Contains(l.prefixes, prefix) {
		l.prefixes = append(l.prefixes, prefix)
	}
	return l
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	l := c.clone()
	for k, v := range metadata {
		l.metadata[k] = v
	}
	return l
}

func (c *consoleLogger) IsLevelEnabled(level LogLevel) bool {
	return level >= c.logLevel && c.logLevel != LevelNone
}

func (c *consoleLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	p := palettes[level]
	var sb strings.Builder
	sb.WriteString(time.Now().Format(time.RFC3339))
	sb.WriteByte(' ')
	sb.WriteString(c.paint(p.level, fmt.Sprintf("[%-5s]", level.String())))
	sb.WriteByte(' ')
	if len(c.prefixes) > 0 {
		sb.WriteString(c.paint(purple, strings.Join(c.prefixes, " ")))
		sb.WriteByte(' ')
	}
	sb.WriteString(c.paint(p.message, fmt.Sprintf(msg, args...)))
	if len(c.metadata) > 0 {
		if buf, err := json.Marshal(c.metadata); err == nil {
			sb.WriteByte(' ')
			sb.WriteString(c.paint(gray, string(buf)))
		}
	}
	sb.WriteByte('\n')
	c.mu.Lock()
	io.WriteString(c.out, sb.String())
	c.mu.Unlock()
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
}

func (c *consoleLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
}

func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
}

func (c *consoleLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}

func (c *consoleLogger) Fatal(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
	os.Exit(1)
}

// NewConsoleLogger returns a new Logger instance which will log to stderr. When no level
// is given the level is read from the environment.
func NewConsoleLogger(levels ...LogLevel) Logger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger returns a console formatted Logger writing to w.
func NewWriterLogger(w io.Writer, level LogLevel) Logger {
	return &consoleLogger{
		out:      w,
		mu:       &sync.Mutex{},
		color:    useColor(w),
		metadata: map[string]interface{}{},
		logLevel: level,
	}
}
