package fileinput

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Location names a position within an Input file.
type Location struct {
	Name string
	Line int
	Col  int
}

// Line combines a Location along with a bytes.Buffer for handling it.
type Line struct {
	Location
	bytes.Buffer
}

func (loc Location) String() string {
	if loc.Name == "" && loc.Line == 0 {
		return "<builtin>"
	}
	return fmt.Sprintf("%v:%v:%v", loc.Name, loc.Line, loc.Col)
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// IsZero returns true for the zero location, used by builtin declarations.
func (loc Location) IsZero() bool { return loc.Name == "" && loc.Line == 0 && loc.Col == 0 }

// Input implements sequential rune reading through a Queue of one or more
// input streams. Both the current and last scanned lines are tracked to
// facilitate user feedback, and the position of the last read rune is
// available from Pos.
type Input struct {
	rr    io.RuneReader
	Queue []io.Reader
	Last  Line
	Scan  Line
}

// ReadRune reads one rune from the current input stream, appending it into the
// current Scan line, and rolling Scan over to Last after line feed.
func (in *Input) ReadRune() (rune, int, error) {
	if in.rr == nil && !in.nextIn() {
		return 0, 0, io.EOF
	}
	for {
		r, n, err := in.rr.ReadRune()
		if n > 0 {
			if r == '\n' {
				in.nextLine()
			} else {
				in.Scan.WriteRune(r)
				in.Scan.Col++
			}
			return r, n, nil
		}
		if err == io.EOF && in.nextIn() {
			continue
		}
		if err == nil {
			err = io.ErrNoProgress
		}
		return 0, 0, err
	}
}

// Pos returns the location of the most recently read rune.
func (in *Input) Pos() Location {
	return Location{Name: in.Scan.Name, Line: in.Scan.Line, Col: in.Scan.Col}
}

func (in *Input) nextLine() {
	in.Last.Reset()
	in.Last.Name = in.Scan.Name
	in.Last.Line = in.Scan.Line
	in.Last.Write(in.Scan.Bytes())
	in.Scan.Reset()
	in.Scan.Line++
	in.Scan.Col = 0
}

func (in *Input) nextIn() bool {
	if in.rr != nil {
		in.nextLine()
		in.rr = nil
	}
	if len(in.Queue) > 0 {
		r := in.Queue[0]
		in.Queue = in.Queue[1:]
		if rr, ok := r.(io.RuneReader); ok {
			in.rr = rr
		} else {
			in.rr = bufio.NewReader(r)
		}
		in.Scan.Name = nameOf(r)
		in.Scan.Line = 1
		in.Scan.Col = 0
	}
	return in.rr != nil
}

// NamedReader attaches a name to an io.Reader, so that locations read through
// an Input report it.
func NamedReader(name string, r io.Reader) io.Reader {
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
