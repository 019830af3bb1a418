// Package colors provides colored console output mirrored into the structured logger.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Color constants
const (
	Red     = "\033[0;31m"
	Green   = "\033[0;32m"
	Yellow  = "\033[1;33m"
	Blue    = "\033[0;34m"
	Magenta = "\033[0;35m"
	Cyan    = "\033[0;36m"
	Bold    = "\033[1m"
	Reset   = "\033[0m"
)

const checkmark = "✓"

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	debugEnabled = false
	quiet        = false
	logger       Logger
	mu           sync.RWMutex
	stdout       io.Writer = os.Stdout
	stderr       io.Writer = os.Stderr
)

func init() {
	if val := os.Getenv("ANCS_INTRAY_DEBUG"); val == "true" || val == "1" {
		debugEnabled = true
	}
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugEnabled = enabled
}

// SetQuiet suppresses Info and Success output. Errors and warnings are still printed.
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// SetLogger sets the structured logger to mirror console output.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects console output. A nil writer restores the process default.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

// Stdout returns the current console output writer.
func Stdout() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return stdout
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelSuccess
	levelWarn
	levelError
)

func write(lvl level, msgs []string) {
	msg := strings.Join(msgs, " ")

	mu.RLock()
	l, out, errOut, dbg, q := logger, stdout, stderr, debugEnabled, quiet
	mu.RUnlock()

	if lvl == levelDebug && !dbg {
		return
	}

	if l != nil {
		switch lvl {
		case levelDebug:
			l.Debug(msg)
		case levelInfo:
			l.Info(msg)
		case levelSuccess:
			l.Info(msg, "type", "success")
		case levelWarn:
			l.Warn(msg)
		case levelError:
			l.Error(msg)
		}
	}

	var err error
	switch lvl {
	case levelDebug:
		_, err = fmt.Fprintf(errOut, "%sDebug:%s %s\n", Cyan, Reset, msg)
	case levelInfo:
		if q {
			return
		}
		_, err = fmt.Fprintf(out, "%s%s%s\n", Blue, msg, Reset)
	case levelSuccess:
		if q {
			return
		}
		_, err = fmt.Fprintf(out, "%s%s%s %s\n", Green, checkmark, Reset, msg)
	case levelWarn:
		_, err = fmt.Fprintf(errOut, "%sWarning:%s %s\n", Yellow, Reset, msg)
	case levelError:
		_, err = fmt.Fprintf(errOut, "%sError:%s %s\n", Red, Reset, msg)
	}
	if err != nil {
		// Printing the failure through write again could recurse on a broken stream.
		fmt.Fprintf(os.Stderr, "failed to print message: %v\n", err)
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) { write(levelError, msgs) }

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) { write(levelWarn, msgs) }

// Success outputs a success message to stdout.
func Success(msgs ...string) { write(levelSuccess, msgs) }

// Info outputs an informational message to stdout.
func Info(msgs ...string) { write(levelInfo, msgs) }

// Debug outputs a debug message to stderr if debug is enabled.
func Debug(msgs ...string) { write(levelDebug, msgs) }
