package check

import (
	"strings"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/scope"
	"github.com/jcorbin/goconcat/internal/types"
)

// block is an open control structure or literal.
type block struct {
	open  ir.BlockKind
	pos   fileinput.Location
	outer int // context enclosing the block
	floor int // floor of the enclosing code

	// if and switch
	fork     []Frame
	cond     int // output index of the pending conditional jump, or -1
	jumps    []int
	branches []branchEnd
	inElse   bool

	// while
	head  []Frame
	start int
	body  bool

	// switch
	value     *types.Type
	table     *ir.SwitchTable
	at        int
	section   bool
	defaulted bool
	labels    map[uint64]fileinput.Location

	// array literals and type blocks
	base  int
	arrow int
}

func (s *session) block(tok ir.Token) error {
	switch tok.Block {
	case ir.BlockIf:
		return s.openIf(tok)
	case ir.BlockElse:
		return s.elseBranch(tok)
	case ir.BlockElseIf:
		return s.elseIf(tok)
	case ir.BlockWhile:
		return s.openWhile(tok)
	case ir.BlockDo:
		return s.do(tok)
	case ir.BlockSwitch:
		return s.openSwitch(tok)
	case ir.BlockBreak:
		return s.breakCase(tok)
	case ir.BlockArray, ir.BlockTuple, ir.BlockUnion:
		s.blocks = append(s.blocks, &block{
			open:  tok.Block,
			pos:   tok.Pos,
			outer: s.ctx,
			floor: s.floor,
			base:  s.stack.Len(),
			arrow: -1,
		})
		return nil
	case ir.BlockArrow:
		b := s.top()
		if b == nil || b.open != ir.BlockTuple || b.arrow >= 0 {
			return diag.Syntaxf(tok.Pos, "unexpected =>")
		}
		b.arrow = s.stack.Len()
		return nil
	case ir.BlockClose:
		return s.closeTypeBlock(tok)
	case ir.BlockEnd:
		return s.endBlock(tok)
	}
	return diag.Syntaxf(tok.Pos, "unexpected %v", tok.Block)
}

func (s *session) top() *block {
	if n := len(s.blocks); n > 0 {
		return s.blocks[n-1]
	}
	return nil
}

func (s *session) expect(tok ir.Token, kind ir.BlockKind) (*block, error) {
	b := s.top()
	if b == nil || b.open != kind {
		return nil, diag.Syntaxf(tok.Pos, "unexpected %v", tok.Block)
	}
	return b, nil
}

func (s *session) closeBlock(b *block) {
	s.blocks = s.blocks[:len(s.blocks)-1]
	s.floor = b.floor
}

func (s *session) openContext(pos fileinput.Location) {
	s.emit(ir.Token{Kind: ir.KContextOpen, Pos: pos})
	s.ctx = s.c.arena.Open(scope.Block, s.ctx)
	s.floor = len(s.out)
}

func (s *session) closeContext(b *block, pos fileinput.Location) {
	s.emit(ir.Token{Kind: ir.KContextClose, Pos: pos})
	s.ctx = b.outer
}

func (s *session) patch(at int) {
	s.out[at].Delta = len(s.out) - at
}

// endBranch records the stack at the end of a reachable branch.
func (s *session) endBranch(b *block, pos fileinput.Location) {
	if !s.dead {
		b.branches = append(b.branches, branchEnd{s.snapshot(), pos})
	}
	s.dead = false
}

// condition pops a branch condition: a bool, or an optional whose content
// the taken branch receives.
func (s *session) condition(tok ir.Token) (ir.Kind, *types.Type, error) {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return 0, nil, err
	}
	switch f.Type.Kind() {
	case types.KindBool:
		return ir.KJumpIfNot, nil, nil
	case types.KindOptional:
		return ir.KJumpIfEmpty, f.Type.Content(), nil
	}
	return 0, nil, diag.Typef(tok.Pos, "%v condition has to be a bool or an optional, got %v", tok.Block, f)
}

func (s *session) openIf(tok ir.Token) error {
	kind, content, err := s.condition(tok)
	if err != nil {
		return err
	}
	b := &block{open: ir.BlockIf, pos: tok.Pos, outer: s.ctx, floor: s.floor}
	b.fork = s.snapshot()
	b.cond = s.emit(ir.Token{Kind: kind, Pos: tok.Pos})
	s.blocks = append(s.blocks, b)
	s.openContext(tok.Pos)
	if content != nil {
		s.push(content, tok.Pos)
	}
	return nil
}

func (s *session) elseBranch(tok ir.Token) error {
	b, err := s.expect(tok, ir.BlockIf)
	if err != nil {
		return err
	}
	if b.inElse {
		return diag.Syntaxf(tok.Pos, "duplicate else of %v at %v", b.open, b.pos)
	}
	s.endBranch(b, tok.Pos)
	s.closeContext(b, tok.Pos)
	b.jumps = append(b.jumps, s.emit(ir.Token{Kind: ir.KJump, Pos: tok.Pos}))
	s.patch(b.cond)
	b.cond = -1
	s.restore(b.fork)
	s.openContext(tok.Pos)
	b.inElse = true
	return nil
}

func (s *session) elseIf(tok ir.Token) error {
	b, err := s.expect(tok, ir.BlockIf)
	if err != nil {
		return err
	}
	if !b.inElse {
		return diag.Syntaxf(tok.Pos, "_if has to follow else")
	}
	kind, content, err := s.condition(tok)
	if err != nil {
		return err
	}
	s.closeContext(b, tok.Pos)
	b.fork = s.snapshot()
	b.cond = s.emit(ir.Token{Kind: kind, Pos: tok.Pos})
	s.openContext(tok.Pos)
	b.inElse = false
	if content != nil {
		s.push(content, tok.Pos)
	}
	return nil
}

func (s *session) endBlock(tok ir.Token) error {
	b := s.top()
	if b == nil {
		return diag.Syntaxf(tok.Pos, "unexpected }")
	}
	switch b.open {
	case ir.BlockIf:
		return s.endIf(b, tok)
	case ir.BlockWhile:
		return s.endWhile(b, tok)
	case ir.BlockSwitch:
		if b.section {
			return diag.Syntaxf(tok.Pos, "missing break statement")
		}
	case ir.BlockArray:
		return s.endArray(b, tok)
	}
	return diag.Syntaxf(tok.Pos, "unexpected } in %v at %v", b.open, b.pos)
}

func (s *session) endIf(b *block, tok ir.Token) error {
	implicit := !b.inElse
	s.endBranch(b, tok.Pos)
	s.closeContext(b, tok.Pos)
	for _, j := range b.jumps {
		s.patch(j)
	}
	if b.cond >= 0 {
		s.patch(b.cond)
	}
	branches := b.branches
	if implicit {
		branches = append(branches, branchEnd{b.fork, b.pos})
	}
	s.closeBlock(b)
	return s.join(branches, tok.Pos)
}

// join continues after a block with the merge of its reachable branches.
func (s *session) join(branches []branchEnd, pos fileinput.Location) error {
	if len(branches) == 0 {
		s.dead = true
		return nil
	}
	merged, err := s.merge(branches, pos)
	if err != nil {
		return err
	}
	s.restore(merged)
	s.dead = false
	return nil
}

// merge combines the stacks of several paths. Heights must agree; each slot
// takes the common supertype of its branches and stays constant only when
// every branch holds the very same frame.
func (s *session) merge(branches []branchEnd, pos fileinput.Location) ([]Frame, error) {
	first := branches[0]
	for _, b := range branches[1:] {
		if len(b.stack) != len(first.stack) {
			return nil, diag.Typef(pos, "cannot merge stack %v at %v with %v at %v",
				framesString(first.stack), first.pos, framesString(b.stack), b.pos)
		}
	}
	out := make([]Frame, len(first.stack))
	for i, f := range first.stack {
		same := true
		for _, b := range branches[1:] {
			g := b.stack[i]
			if sameFrame(f, g) {
				continue
			}
			same = false
			t, ok := types.CommonSuper(f.Type, g.Type)
			if !ok {
				return nil, diag.Typef(pos, "cannot merge %v (pushed at %v) and %v (pushed at %v)", f, f.Pos, g, g.Pos)
			}
			f.Type = t
		}
		if !same {
			f = Frame{Type: f.Type, Pos: pos, tok: -1}
		}
		out[i] = f
	}
	return out, nil
}

func sameFrame(a, b Frame) bool {
	return a.Type == b.Type && a.tok == b.tok && a.opp == b.opp && a.Value == b.Value
}

func (s *session) openWhile(tok ir.Token) error {
	b := &block{open: ir.BlockWhile, pos: tok.Pos, outer: s.ctx, floor: s.floor}
	head := s.snapshot()
	for i := range head {
		if head[i].opp != nil {
			return diag.Typef(tok.Pos, "unresolved procedure pointer @%v cannot enter a loop", head[i].opp.name)
		}
		head[i] = FrameOf(head[i].Type, head[i].Pos)
	}
	s.restore(head)
	b.head = head
	b.start = len(s.out)
	s.blocks = append(s.blocks, b)
	s.openContext(tok.Pos)
	return nil
}

// sameShape reports whether the stack still fits the loop head.
func (s *session) sameShape(head []Frame) bool {
	frames := s.stack.Elems()
	if len(frames) != len(head) {
		return false
	}
	for i, f := range frames {
		if f.opp != nil || !types.CanAssign(f.Type, head[i].Type, nil) {
			return false
		}
	}
	return true
}

func (s *session) do(tok ir.Token) error {
	b, err := s.expect(tok, ir.BlockWhile)
	if err != nil {
		return err
	}
	if b.body {
		return diag.Syntaxf(tok.Pos, "duplicate do in %v at %v", b.open, b.pos)
	}
	kind, content, err := s.condition(tok)
	if err != nil {
		return err
	}

	if next := s.i + 1; next < len(s.src) && s.src[next].Kind == ir.KBlock && s.src[next].Block == ir.BlockEnd {
		if kind != ir.KJumpIfNot {
			return diag.Typef(tok.Pos, "do-while condition has to be a bool")
		}
		if !s.sameShape(b.head) {
			return diag.Typef(tok.Pos, "do-while body modifies the stack: %v, expected %v",
				framesString(s.stack.Elems()), framesString(b.head))
		}
		s.closeContext(b, tok.Pos)
		at := s.emit(ir.Token{Kind: ir.KJumpIf, Pos: tok.Pos})
		s.out[at].Delta = b.start - at
		s.i = next
		s.closeBlock(b)
		s.restore(b.head)
		return nil
	}

	if !s.sameShape(b.head) {
		return diag.Typef(tok.Pos, "while condition modifies the stack: %v, expected %v",
			framesString(s.stack.Elems()), framesString(b.head))
	}
	s.closeContext(b, tok.Pos)
	b.cond = s.emit(ir.Token{Kind: kind, Pos: tok.Pos})
	b.body = true
	s.openContext(tok.Pos)
	if content != nil {
		s.push(content, tok.Pos)
	}
	return nil
}

func (s *session) endWhile(b *block, tok ir.Token) error {
	if !b.body {
		return diag.Syntaxf(b.pos, "while{ without do")
	}
	if !s.dead && !s.sameShape(b.head) {
		return diag.Typef(tok.Pos, "while body modifies the stack: %v, expected %v",
			framesString(s.stack.Elems()), framesString(b.head))
	}
	s.closeContext(b, tok.Pos)
	at := s.emit(ir.Token{Kind: ir.KJump, Pos: tok.Pos})
	s.out[at].Delta = b.start - at
	s.patch(b.cond)
	s.closeBlock(b)
	s.restore(b.head)
	s.dead = false
	return nil
}

func switchable(t *types.Type) bool {
	switch t.Kind() {
	case types.KindBool, types.KindInt, types.KindUint, types.KindByte,
		types.KindCodepoint, types.KindEnum:
		return true
	}
	return false
}

func (s *session) openSwitch(tok ir.Token) error {
	f, err := s.pop(tok.Pos)
	if err != nil {
		return err
	}
	if !switchable(f.Type) {
		return diag.Typef(tok.Pos, "cannot switch on %v", f)
	}
	b := &block{
		open:   ir.BlockSwitch,
		pos:    tok.Pos,
		outer:  s.ctx,
		floor:  s.floor,
		value:  f.Type,
		table:  &ir.SwitchTable{Cases: make(map[uint64]int), Default: -1},
		labels: make(map[uint64]fileinput.Location),
	}
	b.at = s.emit(ir.Token{Kind: ir.KSwitch, Pos: tok.Pos, Table: b.table})
	b.fork = s.snapshot()
	s.blocks = append(s.blocks, b)
	return s.nextSection(b, true)
}

// nextSection scans the labels up to the next case, default or end of the
// switch and opens the section that follows.
func (s *session) nextSection(b *block, first bool) error {
	j := s.i + 1
	for j < len(s.src) && s.src[j].Kind != ir.KBlock {
		j++
	}
	if j >= len(s.src) {
		return diag.Syntaxf(b.pos, "unclosed %v", b.open)
	}
	t := s.src[j]
	labels := s.src[s.i+1 : j]
	switch t.Block {
	case ir.BlockCase:
		if b.defaulted {
			return diag.Syntaxf(t.Pos, "case after default")
		}
		if err := s.caseLabels(b, labels, t.Pos); err != nil {
			return err
		}
	case ir.BlockDefault:
		if first {
			return diag.Syntaxf(t.Pos, "switch must contain at least one case")
		}
		if len(labels) > 0 {
			return diag.Syntaxf(labels[0].Pos, "default cannot have labels")
		}
		b.defaulted = true
		b.table.Default = len(s.out) - b.at
	case ir.BlockEnd:
		if first {
			return diag.Syntaxf(t.Pos, "switch must contain at least one case")
		}
		if len(labels) > 0 {
			return diag.Syntaxf(labels[0].Pos, "case labels without case")
		}
		s.i = j
		return s.endSwitch(b, t)
	default:
		return diag.Syntaxf(t.Pos, "unexpected %v in switch, expected case, default or }", t.Block)
	}
	s.i = j
	s.restore(b.fork)
	s.dead = false
	s.openContext(t.Pos)
	b.section = true
	return nil
}

// caseLabels evaluates the labels of one case as constants. Bare entry
// names stand for the entries of the enum being switched on.
func (s *session) caseLabels(b *block, labels []ir.Token, pos fileinput.Location) error {
	toks := append([]ir.Token(nil), labels...)
	if b.value.Kind() == types.KindEnum {
		for k, tok := range toks {
			if tok.Kind != ir.KIdentifier || tok.Ident != ir.IdentWord {
				continue
			}
			if i, ok := b.value.EntryIndex(tok.Name); ok {
				toks[k] = ir.Token{Kind: ir.KValue, Pos: tok.Pos, Value: ir.Entry(b.value, i)}
			}
		}
	}
	sub := s.c.newSession(toks, s.ctx, nil, pos)
	if err := sub.run(); err != nil {
		return err
	}
	frames := sub.stack.Elems()
	if len(frames) == 0 {
		return diag.Syntaxf(pos, "case without labels")
	}
	for _, f := range frames {
		if f.Value == nil {
			return diag.Syntaxf(f.Pos, "case labels have to be constants, got %v", f)
		}
		if !types.CanAssign(f.Type, b.value, nil) {
			return diag.Typef(f.Pos, "case label %v does not match %v", f, b.value)
		}
		key, ok := f.Value.SwitchKey()
		if !ok {
			return diag.Typef(f.Pos, "%v cannot be a case label", f)
		}
		if prior, dup := b.labels[key]; dup {
			return diag.Syntaxf(f.Pos, "duplicate case label %v, first used at %v", *f.Value, prior)
		}
		b.labels[key] = f.Pos
		b.table.Cases[key] = len(s.out) - b.at
	}
	return nil
}

func (s *session) breakCase(tok ir.Token) error {
	b, err := s.expect(tok, ir.BlockSwitch)
	if err != nil {
		return err
	}
	if !b.section {
		return diag.Syntaxf(tok.Pos, "unexpected break")
	}
	s.endBranch(b, tok.Pos)
	s.closeContext(b, tok.Pos)
	b.jumps = append(b.jumps, s.emit(ir.Token{Kind: ir.KJump, Pos: tok.Pos}))
	b.section = false
	return s.nextSection(b, false)
}

func (s *session) endSwitch(b *block, end ir.Token) error {
	covered := false
	if b.value.Kind() == types.KindEnum {
		var missing []string
		for i, name := range b.value.Entries() {
			if _, ok := b.labels[uint64(i)]; !ok {
				missing = append(missing, name)
			}
		}
		covered = len(missing) == 0
		switch {
		case !b.defaulted && !covered:
			return diag.Typef(end.Pos, "enum switch does not cover %v", strings.Join(missing, ", "))
		case b.defaulted && covered:
			return diag.Typef(b.pos, "enum switch covers every entry of %v, its default is unreachable", b.value)
		case b.defaulted:
			s.c.logfn("%v: enum switch contains a default statement instead of cases for %v",
				b.pos, strings.Join(missing, ", "))
		}
	}

	branches := b.branches
	if !b.defaulted {
		b.table.Default = len(s.out) - b.at
		if !covered {
			branches = append(branches, branchEnd{b.fork, end.Pos})
		}
	}
	for _, j := range b.jumps {
		s.patch(j)
	}
	s.closeBlock(b)
	return s.join(branches, end.Pos)
}

func (s *session) endArray(b *block, tok ir.Token) error {
	n := s.stack.Len() - b.base
	if n < 0 {
		return diag.Typef(tok.Pos, "array literal consumed %d values from outside", -n)
	}
	elems, err := s.popN(n, tok.Pos)
	if err != nil {
		return err
	}
	var common *types.Type
	allConst := true
	for _, f := range elems {
		if f.opp != nil {
			return diag.Typef(f.Pos, "unresolved procedure pointer @%v cannot be an array element", f.opp.name)
		}
		if common == nil {
			common = f.Type
		} else if t, ok := types.CommonSuper(common, f.Type); ok {
			common = t
		} else {
			return diag.Typef(f.Pos, "array element %v does not fit %v", f, common)
		}
		if f.Value == nil {
			allConst = false
		}
	}
	if common == nil {
		common = types.Any
	}
	at := types.ArrayOf(common)
	s.closeBlock(b)
	if allConst && s.trailing(elems...) {
		vals := make([]ir.Value, n)
		for i, f := range elems {
			vals[i] = *f.Value
		}
		s.erase(elems...)
		s.pushConst(ir.NewArray(at, vals), tok.Pos)
		return nil
	}
	s.emit(ir.Token{Kind: ir.KCollect, Pos: tok.Pos, Type: at, Index: n})
	s.push(at, tok.Pos)
	return nil
}

func (s *session) closeTypeBlock(tok ir.Token) error {
	b := s.top()
	if b == nil || b.open != ir.BlockTuple && b.open != ir.BlockUnion {
		return diag.Syntaxf(tok.Pos, "unexpected )")
	}
	n := s.stack.Len() - b.base
	if n < 0 {
		return diag.Typef(tok.Pos, "type block consumed %d values from outside", -n)
	}
	fs, err := s.popN(n, tok.Pos)
	if err != nil {
		return err
	}
	ts := make([]*types.Type, n)
	for i, f := range fs {
		if f.Value == nil || f.Type.Kind() != types.KindType {
			return diag.Typef(f.Pos, "elements of %v have to be constant types, got %v", b.open, f)
		}
		ts[i] = f.Value.AsType()
	}
	s.discard(fs...)

	var t *types.Type
	switch {
	case b.open == ir.BlockUnion:
		if n == 0 {
			return diag.Typef(tok.Pos, "empty union")
		}
		t = types.Union(ts...)
	case b.arrow >= 0:
		k := b.arrow - b.base
		if k < 0 || k > n {
			return diag.Typef(tok.Pos, "procedure type block consumed values across =>")
		}
		t = types.Proc(ts[:k], ts[k:])
	default:
		t = types.Tuple(ts...)
	}
	s.closeBlock(b)
	s.pushConst(ir.TypeValue(t), tok.Pos)
	return nil
}
