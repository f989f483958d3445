// Package logging wraps the standard library's log.Logger with the
// call-site conventions the teacher's cmd/ binaries use directly:
// Printf-style progress lines and Fatalf on unrecoverable startup
// errors, now tagged with a component prefix so multi-component node
// output stays attributable.
package logging

import (
	"log"
	"os"
)

// Logger prefixes every line with a component tag, e.g. "[chain]".
type Logger struct {
	inner *log.Logger
}

// New creates a Logger that writes to stderr, tagged with component.
func New(component string) *Logger {
	return &Logger{inner: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

// Printf logs a formatted progress line.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.inner.Printf(format, args...)
}

// Println logs a single line verbatim.
func (l *Logger) Println(args ...interface{}) {
	l.inner.Println(args...)
}

// Fatalf logs a formatted line and exits the process with status 1, for
// unrecoverable startup failures only.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.inner.Fatalf(format, args...)
}
