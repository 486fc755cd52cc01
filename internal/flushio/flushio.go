// Package flushio provides writers that buffer program output until they
// are flushed.
package flushio

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// WriteFlusher is an io.Writer whose writes may be held until Flush.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// Discard drops everything written to it.
var Discard WriteFlusher = nopFlusher{io.Discard}

// NewWriteFlusher buffers w unless it already flushes itself or is an in
// memory buffer, which gains nothing from buffering.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	switch impl := w.(type) {
	case nil:
		return Discard
	case WriteFlusher:
		return impl
	case *bytes.Buffer, *strings.Builder:
		return nopFlusher{w}
	}
	if w == io.Discard {
		return Discard
	}
	return bufio.NewWriter(w)
}

type nopFlusher struct{ io.Writer }

func (nopFlusher) Flush() error { return nil }

// WriteFlushers returns a writer copying every write to each of wfs, and
// flushing all of them; nils are skipped and nested tees flattened.
func WriteFlushers(wfs ...WriteFlusher) WriteFlusher {
	var all tee
	for _, wf := range wfs {
		switch impl := wf.(type) {
		case nil:
		case tee:
			all = append(all, impl...)
		default:
			all = append(all, wf)
		}
	}
	switch len(all) {
	case 0:
		return Discard
	case 1:
		return all[0]
	}
	return all
}

type tee []WriteFlusher

func (t tee) Write(p []byte) (int, error) {
	for _, wf := range t {
		n, err := wf.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}

func (t tee) Flush() (err error) {
	for _, wf := range t {
		if ferr := wf.Flush(); err == nil {
			err = ferr
		}
	}
	return err
}
