// Package logio provides the leveled logger that every diagnostic, warning
// and trace line goes through, and a line writer feeding it.
package logio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Logger writes "LEVEL: message" lines to an output stream and remembers
// whether anything logged should make the process fail.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	buf      bytes.Buffer
	counts   map[string]int
	failing  map[string]int
	exitCode int
}

// SetOutput sets where lines are written; the zero Logger discards them.
func (log *Logger) SetOutput(w io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.out = w
}

// FailOn makes any line logged at level raise the exit code to at least
// code.
func (log *Logger) FailOn(level string, code int) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.failing == nil {
		log.failing = make(map[string]int)
	}
	log.failing[level] = code
}

// ExitCode returns the status to exit with: 0 unless something failing was
// logged.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

// Count returns how many lines were logged at level.
func (log *Logger) Count(level string) int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.counts[level]
}

// Leveledf returns a printf-style function logging at level.
func (log *Logger) Leveledf(level string) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { log.Printf(level, mess, args...) }
}

// ErrorIf logs a non-nil error with its full detail.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%+v", err)
	}
}

// Errorf logs at the ERROR level, which always fails.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.fail(1)
	log.printf("ERROR", mess, args...)
}

// Printf logs one line at level; an empty level writes the bare message.
func (log *Logger) Printf(level, mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if code, ok := log.failing[level]; ok {
		log.fail(code)
	}
	log.printf(level, mess, args...)
}

func (log *Logger) fail(code int) {
	if code > log.exitCode {
		log.exitCode = code
	}
}

func (log *Logger) printf(level, mess string, args ...interface{}) {
	if log.counts == nil {
		log.counts = make(map[string]int)
	}
	log.counts[level]++
	if log.out == nil {
		return
	}

	log.buf.Reset()
	if level != "" {
		log.buf.WriteString(level)
		log.buf.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&log.buf, mess, args...)
	} else {
		log.buf.WriteString(mess)
	}
	if b := log.buf.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		log.buf.WriteByte('\n')
	}
	if _, err := log.buf.WriteTo(log.out); err != nil {
		// nowhere left to report it
		log.out = nil
		log.fail(2)
	}
}
