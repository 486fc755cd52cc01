package check

import (
	"fmt"
	"strings"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/stack"
	"github.com/jcorbin/goconcat/internal/types"
)

// Frame is one slot of the abstract stack.
type Frame struct {
	Type  *types.Type
	Value *ir.Value // set when the value is statically known
	Pos   fileinput.Location

	tok int          // output index of the value token that pushed the frame, or -1
	opp *placeholder // set for unresolved overloaded procedure pointers
}

// FrameOf returns a frame holding an unknown value of type t.
func FrameOf(t *types.Type, pos fileinput.Location) Frame {
	return Frame{Type: t, Pos: pos, tok: -1}
}

// IsConst reports whether the frame's value is known.
func (f Frame) IsConst() bool { return f.Value != nil }

func (f Frame) String() string {
	if f.Value != nil && f.Type.Kind() != types.KindType {
		return fmt.Sprintf("%v(%v)", f.Type, *f.Value)
	}
	if f.Value != nil {
		return f.Value.String()
	}
	return f.Type.String()
}

func framesString(fs []Frame) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func typesString(ts []*types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func framesOf(ts []*types.Type, pos fileinput.Location) []Frame {
	fs := make([]Frame, len(ts))
	for i, t := range ts {
		fs[i] = FrameOf(t, pos)
	}
	return fs
}

func frameTypes(fs []Frame) []*types.Type {
	ts := make([]*types.Type, len(fs))
	for i, f := range fs {
		ts[i] = f.Type
	}
	return ts
}

// branchEnd is the stack at the end of one control flow path.
type branchEnd struct {
	stack []Frame
	pos   fileinput.Location
}

// session checks one token sequence: a procedure body, the global code or a
// type expression.
type session struct {
	c   *Checker
	ctx int
	src []ir.Token
	i   int
	end fileinput.Location

	out    []ir.Token
	stack  *stack.Stack[Frame]
	blocks []*block
	// tokens below floor belong to enclosing code and are never erased
	floor int
	dead  bool

	checkRet  bool
	ret       []*types.Type
	retStacks []branchEnd
}

func (c *Checker) newSession(src []ir.Token, ctx int, start []Frame, end fileinput.Location) *session {
	st := stack.New[Frame](len(start) + 8)
	for _, f := range start {
		f.tok, f.opp = -1, nil
		st.Push(f)
	}
	return &session{
		c:     c,
		ctx:   ctx,
		src:   src,
		end:   end,
		out:   make([]ir.Token, 0, len(src)),
		stack: st,
	}
}

func (s *session) run() error {
	for s.i = 0; s.i < len(s.src); s.i++ {
		tok := s.src[s.i]
		if s.dead && !reachableAfterEnd(tok) {
			return diag.Syntaxf(tok.Pos, "unreachable code: %v", tok)
		}
		if err := s.step(tok); err != nil {
			return err
		}
	}
	if n := len(s.blocks); n > 0 {
		b := s.blocks[n-1]
		return diag.Syntaxf(b.pos, "unclosed %v", b.open)
	}
	return s.finish()
}

// reachableAfterEnd lists the tokens that may follow a return, exit or
// unreachable.
func reachableAfterEnd(tok ir.Token) bool {
	switch tok.Kind {
	case ir.KUnreachable:
		return true
	case ir.KBlock:
		switch tok.Block {
		case ir.BlockEnd, ir.BlockElse, ir.BlockBreak:
			return true
		}
	}
	return false
}

func (s *session) finish() error {
	switch {
	case s.dead && len(s.retStacks) == 0:
		s.stack.Truncate(0)
	case s.checkRet:
		if !s.dead {
			if err := s.checkReturn(s.end); err != nil {
				return err
			}
		}
	default:
		branches := s.retStacks
		if !s.dead {
			branches = append(branches, branchEnd{s.snapshot(), s.end})
		}
		merged, err := s.merge(branches, s.end)
		if err != nil {
			return err
		}
		s.restore(merged)
	}
	for _, tok := range s.out {
		if tok.Kind == ir.KOverloadedPtr {
			return diag.Typef(tok.Pos, "unresolved overloaded procedure pointer @%v", tok.Name)
		}
	}
	return nil
}

func (s *session) step(tok ir.Token) error {
	switch tok.Kind {
	case ir.KNop:
		return nil
	case ir.KValue:
		s.pushConst(tok.Value, tok.Pos)
		return nil
	case ir.KBlock:
		return s.block(tok)
	case ir.KIdentifier:
		return s.identifier(tok)
	case ir.KLambda:
		return s.lambda(tok)
	case ir.KArrayOf, ir.KMemoryOf, ir.KOptional, ir.KEmpty, ir.KMutability:
		return s.typeOperator(tok)
	case ir.KCast:
		return s.explicitCast(tok)
	case ir.KNew:
		return s.newValue(tok)
	case ir.KCallPtr:
		return s.callPtr(tok)
	case ir.KStackDrop:
		return s.drop(tok)
	case ir.KStackDup:
		return s.dup(tok)
	case ir.KStackRot:
		return s.rot(tok)
	case ir.KReturn:
		return s.doReturn(tok)
	case ir.KExit:
		return s.exit(tok)
	case ir.KAssert:
		return s.assert(tok)
	case ir.KUnreachable:
		s.emit(tok)
		s.dead = true
		return nil
	case ir.KDebugPrint:
		s.c.debugfn("%v: debugPrint %v", tok.Pos, framesString(s.stack.Elems()))
		s.emit(tok)
		return nil
	case ir.KStackSize:
		s.pushConst(ir.Int(int64(s.stack.Len())), tok.Pos)
		return nil
	}
	return diag.Syntaxf(tok.Pos, "unexpected %v token", tok.Kind)
}

func (s *session) emit(tok ir.Token) int {
	s.out = append(s.out, tok)
	return len(s.out) - 1
}

func (s *session) push(t *types.Type, pos fileinput.Location) {
	s.stack.Push(FrameOf(t, pos))
}

func (s *session) pushConst(v ir.Value, pos fileinput.Location) {
	idx := s.emit(ir.Token{Kind: ir.KValue, Pos: pos, Value: v})
	s.stack.Push(Frame{Type: v.Type, Value: &v, Pos: pos, tok: idx})
}

func (s *session) pop(pos fileinput.Location) (Frame, error) {
	f, err := s.stack.Pop()
	if err != nil {
		return f, diag.Typef(pos, "not enough values on the stack")
	}
	return f, nil
}

func (s *session) popN(n int, pos fileinput.Location) ([]Frame, error) {
	fs, err := s.stack.PopN(n)
	if err != nil {
		return nil, diag.Typef(pos, "not enough values on the stack: need %d, have %d", n, s.stack.Len())
	}
	return fs, nil
}

func (s *session) snapshot() []Frame {
	return append([]Frame(nil), s.stack.Elems()...)
}

func (s *session) restore(fs []Frame) {
	s.stack = stack.Of(append([]Frame(nil), fs...)...)
}

// trailing reports whether fs are constants whose value tokens are the last
// non-nop tokens emitted, so that erasing them leaves the output as if they
// were never pushed.
func (s *session) trailing(fs ...Frame) bool {
	if len(fs) == 0 {
		return true
	}
	own := make(map[int]bool, len(fs))
	lo := len(s.out)
	for _, f := range fs {
		if f.Value == nil || f.tok < s.floor || f.tok >= len(s.out) {
			return false
		}
		if s.out[f.tok].Kind != ir.KValue {
			return false
		}
		own[f.tok] = true
		if f.tok < lo {
			lo = f.tok
		}
	}
	for i := lo; i < len(s.out); i++ {
		if !own[i] && s.out[i].Kind != ir.KNop {
			return false
		}
	}
	return true
}

// erase removes the value tokens of trailing constants.
func (s *session) erase(fs ...Frame) {
	for _, f := range fs {
		s.out[f.tok] = ir.Token{Kind: ir.KNop, Pos: s.out[f.tok].Pos}
	}
	s.trim()
}

// trim drops trailing nops above the floor.
func (s *session) trim() {
	n := len(s.out)
	for n > s.floor && s.out[n-1].Kind == ir.KNop {
		n--
	}
	s.out = s.out[:n]
}

// discard removes frames just popped off the top: erased when trailing,
// dropped at run time otherwise.
func (s *session) discard(fs ...Frame) {
	if len(fs) == 0 {
		return
	}
	if s.trailing(fs...) {
		s.erase(fs...)
		return
	}
	s.emit(ir.Token{Kind: ir.KStackDrop, Pos: fs[0].Pos, Args: [2]int{0, len(fs)}})
}

func (s *session) constType(f Frame, what interface{}) (*types.Type, error) {
	if f.Value == nil || f.Type.Kind() != types.KindType {
		return nil, diag.Typef(f.Pos, "%v expects a constant type, got %v", what, f)
	}
	s.discard(f)
	return f.Value.AsType(), nil
}

func (s *session) typeOperator(tok ir.Token) error {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if f.Value == nil || f.Type.Kind() != types.KindType {
		if tok.Kind == ir.KOptional {
			return s.wrap(f, tok)
		}
		return diag.Typef(tok.Pos, "%v expects a constant type, got %v", tok, f)
	}
	t := f.Value.AsType()
	var v ir.Value
	switch tok.Kind {
	case ir.KArrayOf:
		v = ir.TypeValue(types.ArrayOf(t))
	case ir.KMemoryOf:
		v = ir.TypeValue(types.MemoryOf(t))
	case ir.KOptional:
		v = ir.TypeValue(types.OptionalOf(t))
	case ir.KEmpty:
		v = ir.Empty(types.OptionalOf(t))
	case ir.KMutability:
		v = ir.TypeValue(t.WithMutability(tok.Mut))
	}
	s.discard(f)
	s.pushConst(v, tok.Pos)
	return nil
}

func (s *session) wrap(f Frame, tok ir.Token) error {
	if f.opp != nil {
		return diag.Typef(tok.Pos, "cannot wrap unresolved procedure pointer @%v", f.opp.name)
	}
	t := types.OptionalOf(f.Type)
	if f.Value != nil && s.trailing(f) {
		s.erase(f)
		s.pushConst(ir.Some(t, *f.Value), tok.Pos)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KWrap, Pos: tok.Pos, Type: t})
	s.push(t, tok.Pos)
	return nil
}

// stackArgs returns the arguments of a stack operation. The raw forms take
// them as constant integers from the stack, the second one on top.
func (s *session) stackArgs(tok ir.Token) ([2]int, error) {
	if tok.Args[0] >= 0 {
		return tok.Args, nil
	}
	b, err := s.pop(tok.Pos)
	if err != nil {
		return tok.Args, err
	}
	a, err := s.pop(tok.Pos)
	if err != nil {
		return tok.Args, err
	}
	for _, f := range []Frame{a, b} {
		if k := f.Type.Kind(); f.Value == nil || k != types.KindInt && k != types.KindUint {
			return tok.Args, diag.Syntaxf(f.Pos, "arguments of %v must be constant integers, got %v", tok.Kind, f)
		}
	}
	s.discard(a, b)
	args := [2]int{int(a.Value.AsInt()), int(b.Value.AsInt())}
	if args[0] < 0 || args[1] < 0 && tok.Kind != ir.KStackRot {
		return args, diag.Syntaxf(tok.Pos, "arguments of %v must not be negative, got %v", tok.Kind, args)
	}
	return args, nil
}

func (s *session) drop(tok ir.Token) error {
	args, err := s.stackArgs(tok)
	if err != nil {
		return err
	}
	off, count := args[0], args[1]
	if off+count > s.stack.Len() {
		return diag.Typef(tok.Pos, "not enough values on the stack to drop %d below %d: have %d", count, off, s.stack.Len())
	}
	frames := s.stack.Elems()
	n := len(frames)
	for _, f := range frames[n-off:] {
		if f.opp != nil {
			return diag.Typef(tok.Pos, "cannot drop below unresolved procedure pointer @%v", f.opp.name)
		}
	}
	dropped := append([]Frame(nil), frames[n-off-count:n-off]...)
	if err := s.stack.Drop(off, count); err != nil {
		return diag.Typef(tok.Pos, "%v", err)
	}

	var rt []Frame
	for _, f := range dropped {
		if f.opp != nil {
			pushed, err := s.dropOpp(f.opp, f.Pos)
			if err != nil {
				return err
			}
			if !pushed {
				continue
			}
		}
		rt = append(rt, f)
	}
	if len(rt) == 0 {
		s.trim()
		return nil
	}
	if off == 0 && s.trailing(rt...) {
		s.erase(rt...)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KStackDrop, Pos: tok.Pos, Args: [2]int{off, len(rt)}})
	return nil
}

func (s *session) dup(tok ir.Token) error {
	args, err := s.stackArgs(tok)
	if err != nil {
		return err
	}
	off, count := args[0], args[1]
	if off+count > s.stack.Len() {
		return diag.Typef(tok.Pos, "not enough values on the stack to duplicate %d below %d: have %d", count, off, s.stack.Len())
	}
	frames := s.stack.Elems()
	n := len(frames)
	for _, f := range frames[n-off-count:] {
		if f.opp != nil {
			return diag.Typef(tok.Pos, "cannot duplicate unresolved procedure pointer @%v", f.opp.name)
		}
	}
	copies := append([]Frame(nil), frames[n-off-count:n-off]...)
	allConst := true
	for _, f := range copies {
		if f.Value == nil {
			allConst = false
		}
	}
	if allConst {
		for _, f := range copies {
			s.pushConst(*f.Value, tok.Pos)
		}
		return nil
	}
	s.emit(ir.Token{Kind: ir.KStackDup, Pos: tok.Pos, Args: [2]int{off, count}})
	for _, f := range copies {
		f.tok = -1
		s.stack.Push(f)
	}
	return nil
}

func (s *session) rot(tok ir.Token) error {
	args, err := s.stackArgs(tok)
	if err != nil {
		return err
	}
	count, steps := args[0], args[1]
	if count > s.stack.Len() {
		return diag.Typef(tok.Pos, "not enough values on the stack to rotate %d: have %d", count, s.stack.Len())
	}
	if count == 0 || steps%count == 0 {
		return nil
	}
	frames := s.stack.Elems()
	for _, f := range frames[len(frames)-count:] {
		if f.opp != nil {
			return diag.Typef(tok.Pos, "cannot move unresolved procedure pointer @%v", f.opp.name)
		}
	}
	if err := s.stack.Rotate(count, steps); err != nil {
		return diag.Typef(tok.Pos, "%v", err)
	}
	s.emit(ir.Token{Kind: ir.KStackRot, Pos: tok.Pos, Args: [2]int{count, steps}})
	return nil
}

// checkReturn matches the whole stack against the declared outputs,
// converting where needed.
func (s *session) checkReturn(pos fileinput.Location) error {
	frames := s.stack.Elems()
	if len(frames) != len(s.ret) {
		return diag.Typef(pos, "return value %v does not match signature %v", framesString(frames), typesString(s.ret))
	}
	n := len(frames)
	for i := 0; i < n; i++ {
		f := s.stack.Elems()[i]
		g, err := s.coerce(f, n-i, s.ret[i], pos)
		if err != nil {
			return diag.Wrap(err, pos, "return value %v does not match signature %v", framesString(frames), typesString(s.ret))
		}
		if err := s.stack.Set(n-i, g); err != nil {
			return diag.Typef(pos, "%v", err)
		}
	}
	return nil
}

func (s *session) doReturn(tok ir.Token) error {
	if s.checkRet {
		if err := s.checkReturn(tok.Pos); err != nil {
			return err
		}
	} else {
		s.retStacks = append(s.retStacks, branchEnd{s.snapshot(), tok.Pos})
	}
	s.emit(tok)
	s.dead = true
	return nil
}

func (s *session) exit(tok ir.Token) error {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if k := f.Type.Kind(); k != types.KindInt && k != types.KindUint {
		return diag.Typef(tok.Pos, "exit code has to be an integer, got %v", f)
	}
	s.emit(tok)
	s.dead = true
	return nil
}

func (s *session) assert(tok ir.Token) error {
	msg, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if msg.Value == nil || !msg.Value.IsString() {
		return diag.Syntaxf(tok.Pos, "assert needs a constant string message, got %v", msg)
	}
	cond, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if cond.Type.Kind() != types.KindBool {
		return diag.Typef(tok.Pos, "assert condition has to be a bool, got %v", cond)
	}
	message := msg.Value.AsString()
	if cond.Value != nil {
		if !cond.Value.AsBool() {
			return diag.Typef(tok.Pos, "assertion failed: %v", message)
		}
		if s.trailing(cond, msg) {
			s.erase(cond, msg)
			return nil
		}
	}
	s.discard(msg)
	s.emit(ir.Token{Kind: ir.KAssert, Pos: tok.Pos, Message: message})
	return nil
}
