// Package logger prints diagnostics for the Parley CLI.
//
// Debug, Info and Warn lines appear only with --verbose so routing
// decisions and fallbacks can be followed turn by turn. Errors are always
// printed. Lines that belong to a conversation can be tagged with a short
// session id through Session.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity printed in a line's prefix.
type Level string

// Severities.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// sessionTagLen is how many characters of a session id are shown.
const sessionTagLen = 8

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer for log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level Level, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level != LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "[%s] %s%s\n", level, tag, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { logf(LevelDebug, "", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { logf(LevelInfo, "", format, args...) }

// Warn prints a warning if verbose mode is enabled.
func Warn(format string, args ...any) { logf(LevelWarn, "", format, args...) }

// Error prints an error. It is printed even when verbose mode is off.
func Error(format string, args ...any) { logf(LevelError, "", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scope logs lines tagged with a session.
type Scope struct {
	tag string
}

// Session returns a Scope that prefixes lines with the first characters of
// sessionID. An empty id yields an untagged scope.
func Session(sessionID string) Scope {
	if sessionID == "" {
		return Scope{}
	}
	short := sessionID
	if len(short) > sessionTagLen {
		short = short[:sessionTagLen]
	}
	return Scope{tag: "(" + short + ") "}
}

// Debug prints a tagged message if verbose mode is enabled.
func (s Scope) Debug(format string, args ...any) { logf(LevelDebug, s.tag, format, args...) }

// Info prints a tagged message if verbose mode is enabled.
func (s Scope) Info(format string, args ...any) { logf(LevelInfo, s.tag, format, args...) }

// Warn prints a tagged warning if verbose mode is enabled.
func (s Scope) Warn(format string, args ...any) { logf(LevelWarn, s.tag, format, args...) }

// Error prints a tagged error regardless of verbose mode.
func (s Scope) Error(format string, args ...any) { logf(LevelError, s.tag, format, args...) }
