// Package diag defines the errors reported by the lexer and the checker.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/goconcat/internal/fileinput"
)

// Kind classifies check time failures.
type Kind uint8

// Error kinds.
const (
	SyntaxError Kind = iota
	TypeError
)

func (k Kind) String() string {
	if k == TypeError {
		return "type error"
	}
	return "syntax error"
}

// Error is a check time failure at a source position. Cause links to the
// failure that triggered this one, such as an error inside a generic
// instantiation reported at the call site.
type Error struct {
	Kind    Kind
	Message string
	Pos     fileinput.Location
	Cause   error
}

// Syntaxf returns a SyntaxError.
func Syntaxf(pos fileinput.Location, mess string, args ...interface{}) *Error {
	return &Error{Kind: SyntaxError, Message: fmt.Sprintf(mess, args...), Pos: pos}
}

// Typef returns a TypeError.
func Typef(pos fileinput.Location, mess string, args ...interface{}) *Error {
	return &Error{Kind: TypeError, Message: fmt.Sprintf(mess, args...), Pos: pos}
}

// Wrap reports err again at pos, keeping err's kind when it is an *Error.
// Wrapping an error already reported at pos returns it unchanged.
func Wrap(err error, pos fileinput.Location, mess string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	kind := SyntaxError
	var de *Error
	if errors.As(err, &de) {
		kind = de.Kind
		if de.Pos == pos && mess == "" {
			return err
		}
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(mess, args...), Pos: pos, Cause: err}
}

func (err *Error) Unwrap() error { return err.Cause }

func (err *Error) Error() string {
	var sb strings.Builder
	err.write(&sb, false)
	return sb.String()
}

// Format prints the whole position chain under %+v.
func (err *Error) Format(f fmt.State, c rune) {
	var sb strings.Builder
	err.write(&sb, c == 'v' && f.Flag('+'))
	f.Write([]byte(sb.String()))
}

func (err *Error) write(sb *strings.Builder, chain bool) {
	fmt.Fprintf(sb, "%v: %v", err.Pos, err.Kind)
	if err.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(err.Message)
	}
	if err.Cause == nil {
		return
	}
	if !chain {
		if err.Message == "" {
			fmt.Fprintf(sb, ": %v", err.Cause)
		}
		return
	}
	fmt.Fprintf(sb, "\n%+v", err.Cause)
}

// Root returns the innermost *Error of err's chain.
func Root(err error) *Error {
	var root *Error
	for err != nil {
		if de, ok := err.(*Error); ok {
			root = de
		}
		err = errors.Unwrap(err)
	}
	return root
}
