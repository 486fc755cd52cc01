package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jcorbin/goconcat/internal/flushio"
)

// core is the part of the machine that deals with the host: program output,
// trace logging and halting.
type core struct {
	logging
	out     flushio.WriteFlusher
	closers []io.Closer
}

// Output is where natives print to.
func (core *core) Output() io.Writer { return core.out }

func (core *core) Close() (err error) {
	for i := len(core.closers) - 1; i >= 0; i-- {
		if cerr := core.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	core.closers = nil
	return err
}

func (core *core) flush() error {
	if core.out == nil {
		return nil
	}
	return core.out.Flush()
}

// halt stops the machine by panicking with a haltError carrying err, after
// flushing output. A flush failure replaces a nil err.
func (core *core) halt(err error) {
	if ferr := quietly(core.flush); err == nil {
		err = ferr
	}
	quietly(func() error {
		if err == nil {
			core.logf("#", "halt")
		} else {
			core.logf("#", "halt error: %v", err)
		}
		return nil
	})
	panic(haltError{err})
}

func (core *core) haltif(err error) {
	if err != nil {
		core.halt(err)
	}
}

// quietly calls f, discarding any panic it raises.
func quietly(f func() error) (err error) {
	defer func() { recover() }()
	return f()
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error == nil {
		return "halted"
	}
	return fmt.Sprintf("halted: %v", err.error)
}

func (err haltError) Unwrap() error { return err.error }

// logging is the trace log of a machine. Every line starts with a mark, padded
// by repeating its first byte so that marks seen so far line up, and is
// indented by the current prefix.
type logging struct {
	logfn   func(mess string, args ...interface{})
	debugfn func(mess string, args ...interface{})

	prefix    string
	markWidth int
}

// withLogPrefix extends the line prefix until the returned func is called.
func (log *logging) withLogPrefix(prefix string) func() {
	if log.logfn == nil {
		return func() {}
	}
	prior := log.prefix
	log.prefix += prefix
	return func() { log.prefix = prior }
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if len(mark) > log.markWidth {
		log.markWidth = len(mark)
	} else if pad := log.markWidth - len(mark); pad > 0 && mark != "" {
		mark = strings.Repeat(mark[:1], pad) + mark
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v%v %v", log.prefix, mark, mess)
}
