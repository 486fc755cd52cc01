package main

import (
	"bytes"
	"fmt"
	"io"
)

// prelude holds the procedures every program sees unless -no-prelude is
// given. It is checked first, in the same file context as the program, so
// programs may add overloads next to the ones declared here.
var prelude = preludeSource{}

type preludeSource struct{}

func (preludeSource) Name() string { return "prelude" }

func (preludeSource) WriteTo(w io.Writer) (n int64, err error) {
	var buf bytes.Buffer
	line := func(parts ...string) {
		if err != nil {
			return
		}
		for _, s := range parts {
			buf.WriteString(s)
		}
		buf.WriteByte('\n')
		var m int64
		m, err = buf.WriteTo(w)
		n += m
	}

	line("## ordering")
	line("max proc( int int => int ){ over over < if{ swap } drop }")
	line("min proc( int int => int ){ over over > if{ swap } drop }")
	line("max proc( float float => float ){ over over < if{ swap } drop }")
	line("min proc( float float => float ){ over over > if{ swap } drop }")
	line()

	line("## signs")
	line("abs proc( int => int ){ dup 0 < if{ -_ } }")
	line("abs proc( float => float ){ dup 0.0 < if{ -_ } }")
	line("sign proc( int => int ){ dup 0 < if{ drop -1 else 0 > if{ 1 else 0 } } }")
	line()

	line("## booleans")
	line("implies proc( bool bool => bool ){ swap ! | }")
	line()

	line("## output")
	line("newline proc( ){ '\\n' print }")

	return n, err
}

// Reader returns the prelude text.
func (src preludeSource) Reader() (io.Reader, error) {
	var buf bytes.Buffer
	if _, err := src.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing %v: %w", src.Name(), err)
	}
	return &buf, nil
}
