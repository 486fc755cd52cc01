package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcorbin/goconcat/internal/check"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/stack"
)

// fail halts the machine with err attributed to the running token.
func (vm *VM) fail(err error) {
	var re *RuntimeError
	if !errors.As(err, &re) {
		err = &RuntimeError{Token: vm.cur, Err: err}
	}
	vm.halt(err)
}

func (vm *VM) failif(err error) {
	if err != nil {
		vm.fail(err)
	}
}

func (vm *VM) push(v ir.Value) {
	vm.stack.Push(v)
}

func (vm *VM) pop() ir.Value {
	v, err := vm.stack.Pop()
	if err != nil {
		vm.fail(ErrStackUnderflow)
	}
	return v
}

func (vm *VM) popN(n int) []ir.Value {
	vs, err := vm.stack.PopN(n)
	if err != nil {
		vm.fail(ErrStackUnderflow)
	}
	return vs
}

func (vm *VM) popBool() bool {
	return vm.pop().AsBool()
}

func (vm *VM) call(proc *ir.Procedure, curried []ir.Value) {
	if vm.maxDepth > 0 && vm.depth >= vm.maxDepth {
		vm.fail(fmt.Errorf("%w: %d calls deep entering %v", ErrCallDepth, vm.depth, proc.Label))
	}
	vm.depth++
	defer func() { vm.depth-- }()
	vm.logf(">", "call %v", proc.Label)
	vm.exec(newFrame(proc.Label, proc.Body, curried))
}

func (vm *VM) exec(fr *frame) {
	defer vm.withLogPrefix("	")()
	for fr.ip < len(fr.code) {
		if vm.step(fr) {
			return
		}
		vm.haltif(vm.ctx.Err())
	}
}

func (vm *VM) step(fr *frame) bool {
	fr.at = fr.ip
	fr.ip++
	tok := fr.code[fr.at]
	vm.cur = tok
	if vm.logfn != nil {
		vm.logf(">", "exec @%v %v -- s:%v", fr.at, tok, vm.stack.Elems())
	}
	op := execTable[tok.Kind]
	if op == nil {
		vm.fail(fmt.Errorf("%w: %v", errInvalidToken, tok.Kind))
	}
	return op(vm, fr, tok)
}

func (vm *VM) run(ctx context.Context, prog *check.Result) {
	vm.ctx = ctx
	if vm.stack == nil {
		vm.stack = stack.New[ir.Value](64)
	}
	if n := prog.Globals - len(vm.globals); n > 0 {
		vm.globals = append(vm.globals, make([]ir.Value, n)...)
	}
	vm.depth = 0
	vm.exec(newFrame("main", prog.Code, nil))
	vm.haltif(vm.flush())
}

// RuntimeError is a failure of a running program, attributed to the token
// that caused it.
type RuntimeError struct {
	Token ir.Token
	Err   error
}

func (err *RuntimeError) Error() string {
	if err.Token.Pos.IsZero() {
		return fmt.Sprintf("%v: %v", err.Token, err.Err)
	}
	return fmt.Sprintf("%v: %v: %v", err.Token.Pos, err.Token, err.Err)
}

func (err *RuntimeError) Unwrap() error { return err.Err }

// AssertionError carries the message of a failed assert.
type AssertionError string

func (err AssertionError) Error() string { return fmt.Sprintf("assertion failed: %v", string(err)) }

// ExitError ends a run with an exit code.
type ExitError int

func (code ExitError) Error() string { return fmt.Sprintf("exit %d", int(code)) }

// ExitCode returns the code of an exit ending err, if any.
func ExitCode(err error) (int, bool) {
	var code ExitError
	if errors.As(err, &code) {
		return int(code), true
	}
	return 0, false
}

var (
	// ErrStackUnderflow is a pop from an empty value stack.
	ErrStackUnderflow = stack.ErrUnderflow
	// ErrCallDepth is a call past the configured maximum call depth.
	ErrCallDepth = errors.New("call depth exceeded")

	errInvalidToken   = errors.New("invalid token")
	errNoSlot         = errors.New("no such slot")
	errLevelUnderflow = errors.New("context level underflow")
	errSwitchValue    = errors.New("cannot switch on value")
	errNotCallable    = errors.New("not callable")
	errArrayLength    = errors.New("negative array length")
	errNoZero         = errors.New("no zero value")
	errUnreachable    = errors.New("reached unreachable code")
)
