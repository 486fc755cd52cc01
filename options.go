package main

import (
	"io"

	"github.com/jcorbin/goconcat/internal/flushio"
)

// VMOption customizes a VM.
type VMOption interface{ apply(vm *VM) }

const defaultMaxDepth = 4096

var defaults = []VMOption{
	withOutput(io.Discard),
	maxDepthOption(defaultMaxDepth),
}

// VMOptions combines options into one, applied in order.
func VMOptions(opts ...VMOption) VMOption {
	var all options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			all = append(all, impl...)
		default:
			all = append(all, opt)
		}
	}
	if len(all) == 1 {
		return all[0]
	}
	return all
}

type options []VMOption

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

func (vm *VM) apply(opts ...VMOption) {
	options(defaults).apply(vm)
	VMOptions(opts...).apply(vm)
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM) {
	vm.logfn = logfn
}

type withDebugfn func(mess string, args ...interface{})

func (logfn withDebugfn) apply(vm *VM) {
	vm.debugfn = logfn
}

type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type maxDepthOption int

func withOutput(w io.Writer) outputOption { return outputOption{w} }
func withTee(w io.Writer) teeOption       { return teeOption{w} }

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
	if cl, ok := o.Writer.(io.Closer); ok {
		vm.closers = append(vm.closers, cl)
	}
}

func (depth maxDepthOption) apply(vm *VM) {
	vm.maxDepth = int(depth)
}
