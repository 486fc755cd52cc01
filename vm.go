package main

import (
	"context"
	"fmt"

	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/stack"
	"github.com/jcorbin/goconcat/internal/types"
)

// VM runs checked programs: a value stack shared by every call, the global
// variable slots, and one frame per procedure call on the host stack.
type VM struct {
	core

	ctx     context.Context
	stack   *stack.Stack[ir.Value]
	globals []ir.Value

	maxDepth int
	depth    int
	cur      ir.Token
}

// frame is one running token list: its instruction pointer, a slot array
// for each open lexical level, and the values curried into the callee.
type frame struct {
	label   string
	code    []ir.Token
	at, ip  int
	levels  [][]ir.Value
	curried []ir.Value
}

// Stack returns the values left on the stack, bottom first. After a failed
// run it holds whatever the program had pushed when it failed.
func (vm *VM) Stack() []ir.Value { return vm.stack.Elems() }

// Globals returns the global variable slots.
func (vm *VM) Globals() []ir.Value { return vm.globals }

func newFrame(label string, code []ir.Token, curried []ir.Value) *frame {
	return &frame{
		label:   label,
		code:    code,
		levels:  [][]ir.Value{nil},
		curried: curried,
	}
}

//// Values

func (vm *VM) pushValue(fr *frame, tok ir.Token) bool {
	vm.push(tok.Value.Clone())
	return false
}

func (vm *VM) nop(fr *frame, tok ir.Token) bool { return false }

//// Variables

func (vm *VM) variable(fr *frame, tok ir.Token) bool {
	slot := vm.slot(fr, tok.Var)
	if tok.VarOp == ir.Read {
		vm.push(*slot)
	} else {
		*slot = vm.pop()
	}
	return false
}

func (vm *VM) slot(fr *frame, v *ir.Variable) *ir.Value {
	switch v.Kind {
	case ir.Global:
		if v.Index >= len(vm.globals) {
			vm.globals = append(vm.globals, make([]ir.Value, v.Index+1-len(vm.globals))...)
		}
		return &vm.globals[v.Index]
	case ir.Curried:
		if v.Index >= len(fr.curried) {
			vm.fail(fmt.Errorf("%w: %v in %v", errNoSlot, v, fr.label))
		}
		return &fr.curried[v.Index]
	}
	if v.Level >= len(fr.levels) {
		vm.fail(fmt.Errorf("%w: %v with %d levels open", errNoSlot, v, len(fr.levels)))
	}
	if need := v.Index + 1 - len(fr.levels[v.Level]); need > 0 {
		fr.levels[v.Level] = append(fr.levels[v.Level], make([]ir.Value, need)...)
	}
	return &fr.levels[v.Level][v.Index]
}

func (vm *VM) contextOpen(fr *frame, tok ir.Token) bool {
	fr.levels = append(fr.levels, nil)
	return false
}

func (vm *VM) contextClose(fr *frame, tok ir.Token) bool {
	if len(fr.levels) < 2 {
		vm.fail(errLevelUnderflow)
	}
	fr.levels = fr.levels[:len(fr.levels)-1]
	return false
}

//// Control flow

func (vm *VM) jump(fr *frame, tok ir.Token) bool {
	fr.ip = fr.at + tok.Delta
	return false
}

func (vm *VM) jumpIf(fr *frame, tok ir.Token) bool {
	if vm.popBool() {
		fr.ip = fr.at + tok.Delta
	}
	return false
}

func (vm *VM) jumpIfNot(fr *frame, tok ir.Token) bool {
	if !vm.popBool() {
		fr.ip = fr.at + tok.Delta
	}
	return false
}

func (vm *VM) jumpIfEmpty(fr *frame, tok ir.Token) bool {
	v := vm.pop()
	if c, ok := v.Content(); ok {
		vm.push(c)
	} else {
		fr.ip = fr.at + tok.Delta
	}
	return false
}

func (vm *VM) switchCase(fr *frame, tok ir.Token) bool {
	v := vm.pop()
	key, ok := v.SwitchKey()
	if !ok {
		vm.fail(fmt.Errorf("%w: %v", errSwitchValue, v))
	}
	delta, ok := tok.Table.Cases[key]
	if !ok {
		delta = tok.Table.Default
	}
	fr.ip = fr.at + delta
	return false
}

func (vm *VM) ret(fr *frame, tok ir.Token) bool { return true }

func (vm *VM) exit(fr *frame, tok ir.Token) bool {
	v := vm.pop()
	code := int(v.AsInt())
	vm.logf("#", "exit %v", code)
	vm.halt(ExitError(code))
	return true
}

func (vm *VM) assert(fr *frame, tok ir.Token) bool {
	if !vm.popBool() {
		vm.fail(AssertionError(tok.Message))
	}
	return false
}

func (vm *VM) unreachable(fr *frame, tok ir.Token) bool {
	vm.fail(errUnreachable)
	return true
}

func (vm *VM) debugPrint(fr *frame, tok ir.Token) bool {
	if vm.debugfn != nil {
		vm.debugfn("%v: debugPrint %v", tok.Pos, vm.stack.Elems())
	} else {
		vm.logf("?", "%v: debugPrint %v", tok.Pos, vm.stack.Elems())
	}
	return false
}

//// Calls

func (vm *VM) callNative(fr *frame, tok ir.Token) bool {
	vm.native(tok.Native)
	return false
}

func (vm *VM) native(nat *ir.Native) {
	args := vm.popN(len(nat.Type.In()))
	res, err := nat.Call(vm, args)
	vm.failif(err)
	for _, v := range res {
		vm.push(v)
	}
}

func (vm *VM) callProc(fr *frame, tok ir.Token) bool {
	vm.call(tok.Proc, nil)
	return false
}

func (vm *VM) callPtr(fr *frame, tok ir.Token) bool {
	vm.callValue(vm.pop())
	return false
}

func (vm *VM) callValue(v ir.Value) {
	callee := v.Callee()
	switch {
	case callee == nil:
		vm.fail(fmt.Errorf("%w: %v", errNotCallable, v))
	case callee.Native != nil:
		vm.native(callee.Native)
	default:
		vm.call(callee.Proc, callee.Curried)
	}
}

func (vm *VM) curriedLambda(fr *frame, tok ir.Token) bool {
	vals := make([]ir.Value, len(tok.Captures))
	for i, c := range tok.Captures {
		vals[i] = *vm.slot(fr, &ir.Variable{Kind: c.Kind, Level: c.Level, Index: c.Index})
	}
	vm.push(ir.ProcValue(tok.Proc.Type, &ir.Callee{Proc: tok.Proc, Curried: vals}))
	return false
}

func (vm *VM) traitCall(fr *frame, tok ir.Token) bool {
	tv := vm.pop().TraitValue()
	if tv == nil {
		vm.fail(fmt.Errorf("%w: .%v of a non trait value", errNotCallable, tok.Name))
	}
	if tok.Index >= len(tv.Impl) {
		vm.fail(fmt.Errorf("%w: trait field %v", errNoSlot, tok.Name))
	}
	args := vm.popN(tok.Args[0])
	vm.push(tv.Base)
	for _, a := range args {
		vm.push(a)
	}
	vm.callValue(tv.Impl[tok.Index])
	return false
}

//// Conversions and constructors

func (vm *VM) convert(fr *frame, tok ir.Token) bool {
	vm.push(vm.convertValue(vm.pop(), tok))
	return false
}

func (vm *VM) argConvert(fr *frame, tok ir.Token) bool {
	v, err := vm.stack.Get(tok.Index)
	vm.failif(err)
	vm.failif(vm.stack.Set(tok.Index, vm.convertValue(v, tok)))
	return false
}

func (vm *VM) convertValue(v ir.Value, tok ir.Token) ir.Value {
	if tok.Type.Kind() == types.KindTrait {
		return ir.NewTraitValue(tok.Type, v, tok.Impl)
	}
	c, err := v.CastTo(tok.Type)
	vm.failif(err)
	return c
}

func (vm *VM) newTuple(fr *frame, tok ir.Token) bool {
	vm.push(ir.NewTuple(tok.Type, vm.popN(tok.Index)))
	return false
}

func (vm *VM) collect(fr *frame, tok ir.Token) bool {
	vm.push(ir.NewArray(tok.Type, vm.popN(tok.Index)))
	return false
}

func (vm *VM) newArray(fr *frame, tok ir.Token) bool {
	n := vm.pop().AsInt()
	if n < 0 {
		vm.fail(fmt.Errorf("%w: %d", errArrayLength, n))
	}
	zero, ok := ir.Zero(tok.Type.Content())
	if !ok {
		vm.fail(fmt.Errorf("%w: %v", errNoZero, tok.Type.Content()))
	}
	elems := make([]ir.Value, n)
	for i := range elems {
		elems[i] = zero.Clone()
	}
	vm.push(ir.NewArray(tok.Type, elems))
	return false
}

func (vm *VM) wrap(fr *frame, tok ir.Token) bool {
	vm.push(ir.Some(tok.Type, vm.pop()))
	return false
}

func (vm *VM) fieldGet(fr *frame, tok ir.Token) bool {
	vm.push(vm.fieldsOf(vm.pop(), tok)[tok.Index])
	return false
}

func (vm *VM) fieldSet(fr *frame, tok ir.Token) bool {
	target := vm.pop()
	value := vm.pop()
	vm.fieldsOf(target, tok)[tok.Index] = value
	return false
}

func (vm *VM) fieldsOf(v ir.Value, tok ir.Token) []ir.Value {
	tup := v.Tuple()
	if tup == nil || tok.Index >= len(tup.Elems) {
		vm.fail(fmt.Errorf("%w: .%v of %v", errNoSlot, tok.Name, v))
	}
	return tup.Elems
}

//// Stack manipulation

func (vm *VM) stackDrop(fr *frame, tok ir.Token) bool {
	vm.failif(vm.stack.Drop(tok.Args[0], tok.Args[1]))
	return false
}

// stackDup copies count values found off values below the top, keeping
// their order.
func (vm *VM) stackDup(fr *frame, tok ir.Token) bool {
	off, count := tok.Args[0], tok.Args[1]
	for i := 0; i < count; i++ {
		vm.failif(vm.stack.Dup(off + count))
	}
	return false
}

func (vm *VM) stackRot(fr *frame, tok ir.Token) bool {
	vm.failif(vm.stack.Rotate(tok.Args[0], tok.Args[1]))
	return false
}

var execTable [ir.NumKinds]func(vm *VM, fr *frame, tok ir.Token) bool

func init() {
	// source only kinds and unresolved placeholders never reach the machine
	execTable = [ir.NumKinds]func(vm *VM, fr *frame, tok ir.Token) bool{
		ir.KNop:           (*VM).nop,
		ir.KValue:         (*VM).pushValue,
		ir.KCallPtr:       (*VM).callPtr,
		ir.KReturn:        (*VM).ret,
		ir.KExit:          (*VM).exit,
		ir.KAssert:        (*VM).assert,
		ir.KUnreachable:   (*VM).unreachable,
		ir.KDebugPrint:    (*VM).debugPrint,
		ir.KStackDrop:     (*VM).stackDrop,
		ir.KStackDup:      (*VM).stackDup,
		ir.KStackRot:      (*VM).stackRot,
		ir.KVariable:      (*VM).variable,
		ir.KContextOpen:   (*VM).contextOpen,
		ir.KContextClose:  (*VM).contextClose,
		ir.KJump:          (*VM).jump,
		ir.KJumpIf:        (*VM).jumpIf,
		ir.KJumpIfNot:     (*VM).jumpIfNot,
		ir.KJumpIfEmpty:   (*VM).jumpIfEmpty,
		ir.KSwitch:        (*VM).switchCase,
		ir.KCallProc:      (*VM).callProc,
		ir.KCallNative:    (*VM).callNative,
		ir.KConvert:       (*VM).convert,
		ir.KArgConvert:    (*VM).argConvert,
		ir.KNewTuple:      (*VM).newTuple,
		ir.KNewArray:      (*VM).newArray,
		ir.KCollect:       (*VM).collect,
		ir.KWrap:          (*VM).wrap,
		ir.KFieldGet:      (*VM).fieldGet,
		ir.KFieldSet:      (*VM).fieldSet,
		ir.KTraitCall:     (*VM).traitCall,
		ir.KCurriedLambda: (*VM).curriedLambda,
	}
}
