package main

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jcorbin/goconcat/internal/check"
	"github.com/jcorbin/goconcat/internal/ir"
)

// vmDumper writes the machine state after a run, mostly for failed tests.
type vmDumper struct {
	vm  *VM
	out io.Writer
}

func (dump vmDumper) dump() {
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  depth: %v\n", dump.vm.depth)
	if tok := dump.vm.cur; tok.Kind != ir.KNop || !tok.Pos.IsZero() {
		fmt.Fprintf(dump.out, "  last: %v @%v\n", tok, tok.Pos)
	}
	dump.dumpValues("stack", dump.vm.Stack())
	dump.dumpValues("globals", dump.vm.Globals())
}

func (dump vmDumper) dumpValues(name string, vals []ir.Value) {
	fmt.Fprintf(dump.out, "# %v\n", name)
	width := len(strconv.Itoa(len(vals)))
	for i, v := range vals {
		fmt.Fprintf(dump.out, "  [% *d] %v : %v\n", width, i, v, v.Type)
	}
}

// listing is the -dump form of a checked program.
type listing struct {
	Globals int           `yaml:"globals"`
	Stack   []string      `yaml:"stack,flow"`
	Code    []string      `yaml:"code"`
	Procs   []listingProc `yaml:"procs,omitempty"`
}

type listingProc struct {
	Label string   `yaml:"label"`
	Type  string   `yaml:"type"`
	Pos   string   `yaml:"pos,omitempty"`
	Code  []string `yaml:"code"`
}

func newListing(prog *check.Result) listing {
	lst := listing{
		Globals: prog.Globals,
		Stack:   make([]string, len(prog.Stack)),
		Code:    codeListing(prog.Code),
	}
	for i, f := range prog.Stack {
		lst.Stack[i] = f.String()
	}

	seen := make(map[*ir.Procedure]bool)
	var queue []*ir.Procedure
	visit := func(code []ir.Token) {
		for _, proc := range calledProcs(code) {
			if !seen[proc] {
				seen[proc] = true
				queue = append(queue, proc)
			}
		}
	}
	visit(prog.Code)
	for len(queue) > 0 {
		proc := queue[0]
		queue = queue[1:]
		lp := listingProc{Label: proc.Label, Code: codeListing(proc.Body)}
		if proc.Type != nil {
			lp.Type = proc.Type.String()
		}
		if !proc.Pos.IsZero() {
			lp.Pos = proc.Pos.String()
		}
		lst.Procs = append(lst.Procs, lp)
		visit(proc.Body)
	}
	return lst
}

func codeListing(code []ir.Token) []string {
	lines := make([]string, len(code))
	width := len(strconv.Itoa(len(code)))
	for i, tok := range code {
		lines[i] = fmt.Sprintf("@%0*d %v", width, i, tok)
	}
	return lines
}

// calledProcs returns the user procedures code may call, in the order they
// first appear.
func calledProcs(code []ir.Token) (procs []*ir.Procedure) {
	addValue := func(v ir.Value) {
		if c := v.Callee(); c != nil && c.Proc != nil {
			procs = append(procs, c.Proc)
		}
	}
	for _, tok := range code {
		switch tok.Kind {
		case ir.KCallProc, ir.KCurriedLambda:
			procs = append(procs, tok.Proc)
		case ir.KValue:
			addValue(tok.Value)
		case ir.KConvert, ir.KArgConvert:
			for _, v := range tok.Impl {
				addValue(v)
			}
		}
	}
	return procs
}

func writeListing(w io.Writer, prog *check.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newListing(prog)); err != nil {
		return err
	}
	return enc.Close()
}
