package main

import (
	"context"
	"errors"
	"io"

	"github.com/jcorbin/goconcat/internal/check"
	"github.com/jcorbin/goconcat/internal/panicerr"
)

// New creates a machine; the zero options discard output and do not trace.
func New(opts ...VMOption) *VM {
	var vm VM
	vm.apply(opts...)
	return &vm
}

// Run executes a checked program from an empty stack. Runtime failures are
// returned as *RuntimeError, an exit as an ExitError; either way the stack
// is left as the program left it.
func (vm *VM) Run(ctx context.Context, prog *check.Result) error {
	vm.stack, vm.globals = nil, nil
	err := panicerr.Recover("VM", func() error {
		vm.run(ctx, prog)
		return nil
	})
	var halt haltError
	if errors.As(err, &halt) {
		err = halt.error
	}
	return err
}

// WithOutput sets where printed output goes.
func WithOutput(w io.Writer) VMOption { return withOutput(w) }

// WithTee copies printed output to another writer.
func WithTee(w io.Writer) VMOption { return withTee(w) }

// WithMaxDepth limits how deep procedure calls nest; 0 means unlimited.
func WithMaxDepth(depth int) VMOption { return maxDepthOption(depth) }

// WithLogf enables execution tracing.
func WithLogf(logfn func(mess string, args ...interface{})) VMOption { return withLogfn(logfn) }

// WithDebugf sets where debugPrint writes the stack; without it debugPrint
// only shows up in traces.
func WithDebugf(logfn func(mess string, args ...interface{})) VMOption { return withDebugfn(logfn) }
