package logio

import (
	"bytes"
	"sync"
)

// Writer turns written bytes into one Logf call per line. Safe for
// concurrent use.
type Writer struct {
	Logf func(mess string, args ...interface{})

	mu      sync.Mutex
	partial []byte
}

// Write logs every line completed by p, holding back any trailing partial
// line until it is completed or the writer is closed.
func (lw *Writer) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	rest := append(lw.partial, p...)
	for {
		line, tail, found := bytes.Cut(rest, []byte{'\n'})
		if !found {
			break
		}
		lw.Logf("%s", line)
		rest = tail
	}
	lw.partial = append(lw.partial[:0], rest...)
	return len(p), nil
}

// Close logs any held back partial line.
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.partial) > 0 {
		lw.Logf("%s", lw.partial)
		lw.partial = lw.partial[:0]
	}
	return nil
}
