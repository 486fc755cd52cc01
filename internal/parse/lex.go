package parse

import (
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jcorbin/goconcat/internal/diag"
	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/runeio"
	"github.com/jcorbin/goconcat/internal/types"
)

type word struct {
	text string
	pos  fileinput.Location
}

func (w word) String() string { return w.text }

// scanWords splits input into whitespace separated words, keeping quoted
// literals whole and dropping comments.
func scanWords(in *fileinput.Input) ([]word, error) {
	var (
		words []word
		sb    strings.Builder
		start fileinput.Location
	)
	flush := func() {
		if sb.Len() > 0 {
			words = append(words, word{sb.String(), start})
			sb.Reset()
		}
	}
	for {
		r, _, err := in.ReadRune()
		if errors.Is(err, io.EOF) {
			flush()
			return words, nil
		} else if err != nil {
			return nil, err
		}

		if unicode.IsSpace(r) {
			flush()
			continue
		}

		if sb.Len() == 0 {
			start = in.Pos()
			if r == '"' || r == '\'' {
				lit, err := scanQuoted(in, r)
				if err != nil {
					return nil, diag.Syntaxf(start, "%v", err)
				}
				words = append(words, word{lit, start})
				continue
			}
		}
		sb.WriteRune(r)

		switch sb.String() {
		case "##":
			sb.Reset()
			if err := skipLine(in); err != nil {
				return nil, err
			}
		case "#+":
			sb.Reset()
			if err := skipBlockComment(in); err != nil {
				return nil, diag.Syntaxf(start, "%v", err)
			}
		}
	}
}

func scanQuoted(in *fileinput.Input, quote rune) (string, error) {
	var sb strings.Builder
	sb.WriteRune(quote)
	for {
		r, _, err := in.ReadRune()
		if errors.Is(err, io.EOF) {
			return "", errors.New("unterminated literal " + sb.String())
		} else if err != nil {
			return "", err
		}
		sb.WriteRune(r)
		switch r {
		case '\\':
			r, _, err = in.ReadRune()
			if err != nil {
				return "", errors.New("unterminated literal " + sb.String())
			}
			sb.WriteRune(r)
		case quote:
			return sb.String(), nil
		}
	}
}

func skipLine(in *fileinput.Input) error {
	for {
		r, _, err := in.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

func skipBlockComment(in *fileinput.Input) error {
	var last rune
	for {
		r, _, err := in.ReadRune()
		if errors.Is(err, io.EOF) {
			return errors.New("unterminated block comment")
		} else if err != nil {
			return err
		}
		if last == '+' && r == '#' {
			return nil
		}
		last = r
	}
}

var keywords = map[string]ir.Token{
	"true":  {Kind: ir.KValue, Value: ir.Bool(true)},
	"false": {Kind: ir.KValue, Value: ir.Bool(false)},

	"NaN":       {Kind: ir.KValue, Value: ir.Float(math.NaN())},
	"Infinity":  {Kind: ir.KValue, Value: ir.Float(math.Inf(1))},
	"-Infinity": {Kind: ir.KValue, Value: ir.Float(math.Inf(-1))},

	"bool":      {Kind: ir.KValue, Value: ir.TypeValue(types.Bool)},
	"int":       {Kind: ir.KValue, Value: ir.TypeValue(types.Int)},
	"uint":      {Kind: ir.KValue, Value: ir.TypeValue(types.Uint)},
	"float":     {Kind: ir.KValue, Value: ir.TypeValue(types.Float)},
	"byte":      {Kind: ir.KValue, Value: ir.TypeValue(types.Byte)},
	"codepoint": {Kind: ir.KValue, Value: ir.TypeValue(types.Codepoint)},
	"type":      {Kind: ir.KValue, Value: ir.TypeValue(types.TypeType)},
	"var":       {Kind: ir.KValue, Value: ir.TypeValue(types.Any)},
	"string":    {Kind: ir.KValue, Value: ir.TypeValue(types.String)},

	"array":    {Kind: ir.KArrayOf},
	"memory":   {Kind: ir.KMemoryOf},
	"optional": {Kind: ir.KOptional},
	"empty":    {Kind: ir.KEmpty},
	"mut":      {Kind: ir.KMutability, Mut: types.Mutable},
	"mut~":     {Kind: ir.KMutability, Mut: types.Immutable},
	"mut?":     {Kind: ir.KMutability, Mut: types.Undecided},

	"if{":     {Kind: ir.KBlock, Block: ir.BlockIf},
	"_if":     {Kind: ir.KBlock, Block: ir.BlockElseIf},
	"else":    {Kind: ir.KBlock, Block: ir.BlockElse},
	"}":       {Kind: ir.KBlock, Block: ir.BlockEnd},
	"while{":  {Kind: ir.KBlock, Block: ir.BlockWhile},
	"do":      {Kind: ir.KBlock, Block: ir.BlockDo},
	"switch{": {Kind: ir.KBlock, Block: ir.BlockSwitch},
	"case":    {Kind: ir.KBlock, Block: ir.BlockCase},
	"default": {Kind: ir.KBlock, Block: ir.BlockDefault},
	"break":   {Kind: ir.KBlock, Block: ir.BlockBreak},
	"{":       {Kind: ir.KBlock, Block: ir.BlockArray},
	"(":       {Kind: ir.KBlock, Block: ir.BlockTuple},
	"union(":  {Kind: ir.KBlock, Block: ir.BlockUnion},
	"=>":      {Kind: ir.KBlock, Block: ir.BlockArrow},
	")":       {Kind: ir.KBlock, Block: ir.BlockClose},

	"cast":        {Kind: ir.KCast},
	"new":         {Kind: ir.KNew},
	"()":          {Kind: ir.KCallPtr},
	"return":      {Kind: ir.KReturn},
	"exit":        {Kind: ir.KExit},
	"assert":      {Kind: ir.KAssert},
	"unreachable": {Kind: ir.KUnreachable},
	"debugPrint":  {Kind: ir.KDebugPrint},
	"#stackSize":  {Kind: ir.KStackSize},

	"dup":    {Kind: ir.KStackDup, Args: [2]int{0, 1}},
	"over":   {Kind: ir.KStackDup, Args: [2]int{1, 1}},
	"drop":   {Kind: ir.KStackDrop, Args: [2]int{0, 1}},
	"swap":   {Kind: ir.KStackRot, Args: [2]int{2, 1}},
	"rot":    {Kind: ir.KStackRot, Args: [2]int{3, 1}},
	"??dup":  {Kind: ir.KStackDup, Args: [2]int{-1, -1}},
	"??drop": {Kind: ir.KStackDrop, Args: [2]int{-1, -1}},
	"??rot":  {Kind: ir.KStackRot, Args: [2]int{-1, -1}},
}

// words that only have meaning inside declarations
var reserved = map[string]bool{
	"proc(": true, "lambda(": true, "λ(": true, "){": true,
	"struct{": true, "enum{": true, "trait{": true, "implement{": true,
	"extend": true, "for": true, "<>": true, "<?>": true,
	"public": true, "restricted": true, "private": true,
	"=": true, "=:": true, "=::": true,
}

var accessWords = map[string]types.Accessibility{
	"public":     types.Public,
	"restricted": types.ReadOnly,
	"private":    types.Private,
}

var assignOps = map[string]ir.IdentKind{
	"=":   ir.IdentWrite,
	"=:":  ir.IdentDeclare,
	"=::": ir.IdentImplicitDecl,
}

// literal converts a literal or keyword word into a token.
func literal(w word) (ir.Token, bool, error) {
	tok := ir.Token{Pos: w.pos}
	if kw, ok := keywords[w.text]; ok {
		kw.Pos = w.pos
		return kw, true, nil
	}
	switch w.text[0] {
	case '"':
		s, err := runeio.UnquoteString(w.text[1 : len(w.text)-1])
		if err != nil {
			return tok, false, diag.Syntaxf(w.pos, "%v", err)
		}
		tok.Kind, tok.Value = ir.KValue, ir.String(s)
		return tok, true, nil
	case '\'':
		r, err := runeio.UnquoteRune(w.text)
		if err != nil {
			return tok, false, diag.Syntaxf(w.pos, "%v", err)
		}
		tok.Kind, tok.Value = ir.KValue, ir.Codepoint(r)
		return tok, true, nil
	}
	if v, ok, err := number(w.text); err != nil {
		return tok, false, diag.Syntaxf(w.pos, "invalid number literal %q: %v", w.text, err)
	} else if ok {
		tok.Kind, tok.Value = ir.KValue, v
		return tok, true, nil
	}
	return tok, false, nil
}

// number parses integer literals (decimal, 0x, 0b, optional sign, u
// suffix for unsigned) and decimal float literals.
func number(s string) (ir.Value, bool, error) {
	body := strings.TrimPrefix(s, "-")
	if body == "" || body[0] < '0' || body[0] > '9' {
		return ir.Value{}, false, nil
	}
	if last := s[len(s)-1]; last == 'u' || last == 'U' {
		if s[0] == '-' {
			return ir.Value{}, false, errors.New("unsigned literal cannot be negative")
		}
		u, err := strconv.ParseUint(s[:len(s)-1], 0, 64)
		if err != nil {
			return ir.Value{}, false, numError(err)
		}
		return ir.Uint(u), true, nil
	}
	isHex := len(body) > 1 && (body[1] == 'x' || body[1] == 'X')
	if !isHex && strings.ContainsAny(body, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ir.Value{}, false, numError(err)
		}
		return ir.Float(f), true, nil
	}
	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return ir.Value{}, false, numError(err)
	}
	return ir.Int(i), true, nil
}

func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}

// validName reports whether s may name a declaration or variable.
func validName(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	if _, isKeyword := keywords[s]; isKeyword {
		return false
	}
	r := []rune(s)[0]
	return !unicode.IsDigit(r) && r != '"' && r != '\'' && r != '@' && r != '.' && r != ':'
}
