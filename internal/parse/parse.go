// Package parse turns source text into the token and declaration form
// consumed by the checker. It knows nothing about types beyond the literal
// spelling of the primitive ones.
package parse

import (
	"io"
	"strings"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

// Program is one parsed source unit: its root level declarations and the
// remaining global code.
type Program struct {
	Procs   []*ir.ProcSource
	Structs []*ir.StructSource
	Enums   []*ir.EnumSource
	Traits  []*ir.TraitSource
	Impls   []*ir.ImplSource
	Code    []ir.Token
	End     fileinput.Location
}

// Parse reads a whole named source.
func Parse(name string, r io.Reader) (*Program, error) {
	in := fileinput.Input{Queue: []io.Reader{fileinput.NamedReader(name, r)}}
	words, err := scanWords(&in)
	if err != nil {
		return nil, err
	}
	p := parser{words: words, end: in.Pos()}
	p.end.Name = name
	return p.root()
}

// ParseString parses source text, mostly for tests and the prelude.
func ParseString(name, src string) (*Program, error) {
	return Parse(name, strings.NewReader(src))
}

type parser struct {
	words []word
	i     int
	end   fileinput.Location
}

func (p *parser) peek(off int) (word, bool) {
	if j := p.i + off; j < len(p.words) {
		return p.words[j], true
	}
	return word{}, false
}

func (p *parser) next() (word, bool) {
	w, ok := p.peek(0)
	if ok {
		p.i++
	}
	return w, ok
}

func (p *parser) pos() fileinput.Location {
	if w, ok := p.peek(0); ok {
		return w.pos
	}
	return p.end
}

func (p *parser) root() (*Program, error) {
	prog := &Program{End: p.end}
	depth := 0
	for p.i < len(p.words) {
		w := p.words[p.i]
		if depth == 0 {
			if handled, err := p.declaration(prog); err != nil {
				return nil, err
			} else if handled {
				continue
			}
		}
		if w.text == "}" {
			if depth == 0 {
				return nil, diag.Syntaxf(w.pos, "unexpected }")
			}
			depth--
		}
		if opensBlock(w.text) {
			depth++
		}
		toks, err := p.code()
		if err != nil {
			return nil, err
		}
		prog.Code = append(prog.Code, toks...)
	}
	if depth > 0 {
		return nil, diag.Syntaxf(p.end, "unexpected end of input, missing }")
	}
	return prog, nil
}

func opensBlock(s string) bool {
	switch s {
	case "{", "if{", "while{", "switch{":
		return true
	}
	return false
}

// declaration parses a root level declaration starting at the cursor.
func (p *parser) declaration(prog *Program) (bool, error) {
	w, _ := p.peek(0)
	if w.text == "implement{" {
		impl, err := p.implement()
		if err == nil {
			prog.Impls = append(prog.Impls, impl)
		}
		return true, err
	}
	kw, ok := p.peek(1)
	if !ok {
		return false, nil
	}
	switch kw.text {
	case "proc(", "struct{", "enum{", "trait{":
	default:
		return false, nil
	}
	if !validName(w.text) {
		return true, diag.Syntaxf(w.pos, "invalid declaration name %q", w.text)
	}
	p.i += 2
	var err error
	switch kw.text {
	case "proc(":
		var proc *ir.ProcSource
		if proc, err = p.procedure(w, true); err == nil {
			prog.Procs = append(prog.Procs, proc)
		}
	case "struct{":
		var st *ir.StructSource
		if st, err = p.structure(w); err == nil {
			prog.Structs = append(prog.Structs, st)
		}
	case "enum{":
		var en *ir.EnumSource
		if en, err = p.enum(w); err == nil {
			prog.Enums = append(prog.Enums, en)
		}
	case "trait{":
		var tr *ir.TraitSource
		if tr, err = p.trait(w); err == nil {
			prog.Traits = append(prog.Traits, tr)
		}
	}
	return true, err
}

// procedure parses the signature and body following "name proc(".
func (p *parser) procedure(name word, withBody bool) (*ir.ProcSource, error) {
	proc := &ir.ProcSource{Name: name.text, Pos: name.pos, Public: true}
	opened, err := p.signature(proc)
	if err != nil {
		return nil, err
	}
	if !withBody {
		if opened {
			return nil, diag.Syntaxf(name.pos, "trait field %v cannot have a body", name.text)
		}
		return proc, nil
	}
	if !opened {
		return nil, diag.Syntaxf(p.pos(), "expected ){ to open the body of %v", name.text)
	}
	proc.Body, proc.End, err = p.body()
	return proc, err
}

// signature parses "ins => outs" up to a closing ")" or "){", collecting
// generic parameter declarations; it reports whether a body was opened.
func (p *parser) signature(proc *ir.ProcSource) (bool, error) {
	depth := 0
	for {
		w, ok := p.peek(0)
		if !ok {
			return false, diag.Syntaxf(p.end, "unexpected end of input in signature of %v", proc.Name)
		}
		if next, ok := p.peek(1); ok && (next.text == "<>" || next.text == "<?>") {
			if !validName(w.text) {
				return false, diag.Syntaxf(w.pos, "invalid generic parameter name %q", w.text)
			}
			proc.Generics = append(proc.Generics, ir.Generic{Name: w.text, Implicit: next.text == "<?>", Pos: w.pos})
			p.i += 2
			continue
		}
		switch w.text {
		case "(", "union(":
			depth++
		case ")", "){":
			if depth == 0 {
				p.i++
				return w.text == "){", nil
			}
			if w.text == "){" {
				return false, diag.Syntaxf(w.pos, "unexpected ){ in signature")
			}
			depth--
		case "=>":
			if depth == 0 {
				if proc.HasOut {
					return false, diag.Syntaxf(w.pos, "duplicate => in signature")
				}
				proc.HasOut = true
				p.i++
				continue
			}
		}
		toks, err := p.code()
		if err != nil {
			return false, err
		}
		if proc.HasOut {
			proc.Out = append(proc.Out, toks...)
		} else {
			proc.In = append(proc.In, toks...)
		}
	}
}

// body parses code up to the matching "}", which it consumes.
func (p *parser) body() ([]ir.Token, fileinput.Location, error) {
	var out []ir.Token
	depth := 0
	for {
		w, ok := p.peek(0)
		if !ok {
			return nil, p.end, diag.Syntaxf(p.end, "unexpected end of input, missing }")
		}
		if w.text == "}" {
			if depth == 0 {
				p.i++
				return out, w.pos, nil
			}
			depth--
		}
		if opensBlock(w.text) {
			depth++
		}
		toks, err := p.code()
		if err != nil {
			return nil, p.end, err
		}
		out = append(out, toks...)
	}
}

// code converts the word at the cursor, and any assignment operator that
// follows it, into tokens.
func (p *parser) code() ([]ir.Token, error) {
	w, _ := p.next()
	switch w.text {
	case "lambda(", "λ(":
		proc := &ir.ProcSource{Name: "lambda", Pos: w.pos}
		opened, err := p.signature(proc)
		if err != nil {
			return nil, err
		}
		if !opened {
			return nil, diag.Syntaxf(p.pos(), "expected ){ to open the lambda body")
		}
		if len(proc.Generics) > 0 {
			return nil, diag.Syntaxf(w.pos, "lambdas cannot declare generic parameters")
		}
		if proc.Body, proc.End, err = p.body(); err != nil {
			return nil, err
		}
		return []ir.Token{{Kind: ir.KLambda, Pos: w.pos, Source: proc}}, nil
	case "proc(", "struct{", "enum{", "trait{", "implement{":
		return nil, diag.Syntaxf(w.pos, "%v is only allowed at the root level", w.text)
	}
	if _, isAccess := accessWords[w.text]; isAccess {
		return nil, diag.Syntaxf(w.pos, "modifier %v must precede an assignment operator", w.text)
	}
	if _, isOp := assignOps[w.text]; isOp {
		return nil, diag.Syntaxf(w.pos, "%v must follow an identifier", w.text)
	}
	if reserved[w.text] {
		return nil, diag.Syntaxf(w.pos, "unexpected %v", w.text)
	}

	tok, ok, err := literal(w)
	if err != nil {
		return nil, err
	}
	if ok {
		return []ir.Token{tok}, nil
	}

	tok = ir.Token{Kind: ir.KIdentifier, Pos: w.pos, Name: w.text, Access: types.Public}
	switch w.text[0] {
	case '@':
		tok.Ident, tok.Name = ir.IdentProcPtr, w.text[1:]
	case '.':
		tok.Ident, tok.Name = ir.IdentGetField, w.text[1:]
	}
	if tok.Name == "" || (tok.Ident != ir.IdentGetField && !validName(tok.Name)) {
		return nil, diag.Syntaxf(w.pos, "invalid identifier %q", w.text)
	}
	if tok.Ident == ir.IdentProcPtr {
		return []ir.Token{tok}, nil
	}
	return p.assignment(tok)
}

// assignment folds modifiers and an assignment operator following an
// identifier into it.
func (p *parser) assignment(tok ir.Token) ([]ir.Token, error) {
	j := 0
	for {
		w, ok := p.peek(j)
		if !ok {
			return []ir.Token{tok}, nil
		}
		if kw, isMut := keywords[w.text]; isMut && kw.Kind == ir.KMutability {
			j++
			continue
		}
		if _, isAccess := accessWords[w.text]; isAccess {
			j++
			continue
		}
		op, isOp := assignOps[w.text]
		if !isOp {
			// mutability words after a plain identifier mark its type
			return []ir.Token{tok}, nil
		}
		mods := p.words[p.i : p.i+j]
		p.i += j + 1
		if tok.Ident == ir.IdentGetField {
			if op != ir.IdentWrite {
				return nil, diag.Syntaxf(w.pos, "fields can only be assigned with =")
			}
			op = ir.IdentSetField
		}
		tok.Ident = op
		tok.Mut = types.Default
		seenMut, seenAccess := false, false
		for _, m := range mods {
			if kw, isMut := keywords[m.text]; isMut {
				if seenMut {
					return nil, diag.Syntaxf(m.pos, "duplicate mutability modifier %v", m.text)
				}
				seenMut, tok.Mut = true, kw.Mut
			} else {
				if seenAccess {
					return nil, diag.Syntaxf(m.pos, "duplicate access modifier %v", m.text)
				}
				seenAccess, tok.Access = true, accessWords[m.text]
			}
		}
		if len(mods) > 0 && op != ir.IdentDeclare && op != ir.IdentImplicitDecl {
			return nil, diag.Syntaxf(mods[0].pos, "modifiers are only allowed in declarations")
		}
		return []ir.Token{tok}, nil
	}
}

func (p *parser) structure(name word) (*ir.StructSource, error) {
	st := &ir.StructSource{Name: name.text, Pos: name.pos}
	var pending []ir.Token
	for {
		w, ok := p.peek(0)
		if !ok {
			return nil, diag.Syntaxf(p.end, "unexpected end of input in struct %v", name.text)
		}
		if next, ok := p.peek(1); ok && (next.text == "<>" || next.text == "<?>") {
			if next.text == "<?>" {
				return nil, diag.Syntaxf(next.pos, "struct generic parameters must be explicit")
			}
			st.Generics = append(st.Generics, ir.Generic{Name: w.text, Pos: w.pos})
			p.i += 2
			continue
		}
		switch {
		case w.text == "}":
			p.i++
			if len(pending) > 0 {
				return nil, diag.Syntaxf(pending[0].Pos, "type without field name in struct %v", name.text)
			}
			return st, nil
		case w.text == "extend":
			p.i++
			if st.Parent != nil || len(st.Fields) > 0 || len(pending) == 0 {
				return nil, diag.Syntaxf(w.pos, "extend must follow the parent type and precede all fields")
			}
			st.Parent, pending = pending, nil
			continue
		case len(w.text) > 1 && w.text[0] == ':':
			p.i++
			if len(pending) == 0 {
				return nil, diag.Syntaxf(w.pos, "field %v has no type", w.text)
			}
			f := ir.FieldSource{Name: w.text[1:], Pos: w.pos, Type: pending, Access: types.Public}
			pending = nil
			for {
				m, ok := p.peek(0)
				if !ok {
					break
				}
				if kw, isMut := keywords[m.text]; isMut && kw.Kind == ir.KMutability {
					f.Mut = kw.Mut
				} else if acc, isAccess := accessWords[m.text]; isAccess {
					f.Access = acc
				} else {
					break
				}
				p.i++
			}
			st.Fields = append(st.Fields, f)
			continue
		}
		toks, err := p.code()
		if err != nil {
			return nil, err
		}
		pending = append(pending, toks...)
	}
}

func (p *parser) enum(name word) (*ir.EnumSource, error) {
	en := &ir.EnumSource{Name: name.text, Pos: name.pos}
	seen := make(map[string]bool)
	for {
		w, ok := p.next()
		if !ok {
			return nil, diag.Syntaxf(p.end, "unexpected end of input in enum %v", name.text)
		}
		if w.text == "}" {
			return en, nil
		}
		if !validName(w.text) {
			return nil, diag.Syntaxf(w.pos, "invalid enum entry %q", w.text)
		}
		if seen[w.text] {
			return nil, diag.Syntaxf(w.pos, "duplicate enum entry %v", w.text)
		}
		seen[w.text] = true
		en.Entries = append(en.Entries, w.text)
	}
}

func (p *parser) trait(name word) (*ir.TraitSource, error) {
	tr := &ir.TraitSource{Name: name.text, Pos: name.pos}
	for {
		w, ok := p.next()
		if !ok {
			return nil, diag.Syntaxf(p.end, "unexpected end of input in trait %v", name.text)
		}
		if w.text == "}" {
			return tr, nil
		}
		if kw, ok := p.next(); !ok || kw.text != "proc(" || !validName(w.text) {
			return nil, diag.Syntaxf(w.pos, "expected name proc( ... ) in trait %v", name.text)
		}
		sig, err := p.procedure(w, false)
		if err != nil {
			return nil, err
		}
		if len(sig.Generics) > 0 {
			return nil, diag.Syntaxf(w.pos, "trait field %v cannot declare generic parameters", w.text)
		}
		tr.Fields = append(tr.Fields, ir.TraitField{Name: w.text, Pos: w.pos, In: sig.In, Out: sig.Out})
	}
}

func (p *parser) implement() (*ir.ImplSource, error) {
	start, _ := p.next()
	impl := &ir.ImplSource{Pos: start.pos}
	seenFor := false
	for {
		w, ok := p.peek(0)
		if !ok {
			return nil, diag.Syntaxf(p.end, "unexpected end of input in implement")
		}
		switch {
		case w.text == "}":
			p.i++
			if !seenFor || len(impl.For) == 0 {
				return nil, diag.Syntaxf(start.pos, "expected implement{ Trait for Type ... }")
			}
			return impl, nil
		case w.text == "for":
			p.i++
			if seenFor || len(impl.Trait) == 0 {
				return nil, diag.Syntaxf(w.pos, "unexpected for")
			}
			seenFor = true
			continue
		}
		if kw, ok := p.peek(1); ok && kw.text == "proc(" {
			if !seenFor {
				return nil, diag.Syntaxf(w.pos, "procedures must follow implement{ Trait for Type")
			}
			p.i += 2
			proc, err := p.procedure(w, true)
			if err != nil {
				return nil, err
			}
			impl.Procs = append(impl.Procs, proc)
			continue
		}
		if len(impl.Procs) > 0 {
			return nil, diag.Syntaxf(w.pos, "unexpected %v in implement", w.text)
		}
		toks, err := p.code()
		if err != nil {
			return nil, err
		}
		if seenFor {
			impl.For = append(impl.For, toks...)
		} else {
			impl.Trait = append(impl.Trait, toks...)
		}
	}
}
