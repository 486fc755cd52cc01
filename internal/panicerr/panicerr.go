// Package panicerr runs functions behind a boundary that turns panics and
// goroutine exits into returned errors.
package panicerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Error is a recovered panic.
type Error struct {
	Name  string
	Value interface{}
	Stack []byte
}

func (pe *Error) Error() string { return fmt.Sprint(pe) }

// Format prints the panic value; %+v adds the panicking stack.
func (pe *Error) Format(f fmt.State, c rune) {
	if pe.Name == "" {
		fmt.Fprintf(f, "panicked: %v", pe.Value)
	} else {
		fmt.Fprintf(f, "%v panicked: %v", pe.Name, pe.Value)
	}
	if c == 'v' && f.Flag('+') {
		fmt.Fprintf(f, "\nPanic stack: %s", pe.Stack)
	}
}

// Unwrap returns the panic value when it is an error.
func (pe *Error) Unwrap() error {
	err, _ := pe.Value.(error)
	return err
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(name))
}

// Recover runs f on its own goroutine and returns its error, or an error
// describing how f ended abnormally.
func Recover(name string, f func() error) error {
	done := make(chan error, 1)
	go func() {
		returned := false
		defer func() {
			if returned {
				return
			}
			if e := recover(); e != nil {
				done <- &Error{Name: name, Value: e, Stack: debug.Stack()}
			} else {
				done <- exitError(name)
			}
		}()
		err := f()
		returned = true
		done <- err
	}()
	return <-done
}

// IsPanic reports whether err is, or wraps, a recovered panic.
func IsPanic(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

// IsExit reports whether err is a recovered goroutine exit.
func IsExit(err error) bool {
	var xe exitError
	return errors.As(err, &xe)
}
