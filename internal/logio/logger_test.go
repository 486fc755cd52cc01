package logio

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	var log Logger
	log.SetOutput(&buf)

	log.Printf("INFO", "hello %v", "world")
	log.Leveledf("WARN")("careful")
	assert.Equal(t, 0, log.ExitCode())

	log.ErrorIf(nil)
	log.ErrorIf(errors.New("boom"))
	assert.Equal(t, 1, log.ExitCode())
	assert.Equal(t, "INFO: hello world\nWARN: careful\nERROR: boom\n", buf.String())
	assert.Equal(t, 1, log.Count("WARN"))
	assert.Equal(t, 1, log.Count("ERROR"))
}

func TestLoggerFailOn(t *testing.T) {
	var log Logger
	log.FailOn("WARN", 3)
	log.Printf("INFO", "fine")
	assert.Equal(t, 0, log.ExitCode())
	log.Printf("WARN", "not fine")
	assert.Equal(t, 3, log.ExitCode())
	log.Errorf("worse")
	assert.Equal(t, 3, log.ExitCode(), "exit code only rises")
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestLoggerWriteError(t *testing.T) {
	var log Logger
	log.SetOutput(failWriter{})
	log.Printf("INFO", "lost")
	assert.Equal(t, 2, log.ExitCode())
	log.Printf("INFO", "also lost")
	assert.Equal(t, 2, log.Count("INFO"))
}

func TestWriter(t *testing.T) {
	var lines []string
	lw := Writer{Logf: func(mess string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(mess, args...))
	}}
	fmt.Fprintf(&lw, "one\ntw")
	fmt.Fprintf(&lw, "o\nthree")
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.NoError(t, lw.Close())
	assert.Equal(t, []string{"one", "two", "three"}, lines)
	assert.NoError(t, lw.Close())
	assert.Len(t, lines, 3)
}
