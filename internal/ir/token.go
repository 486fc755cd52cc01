package ir

import (
	"fmt"
	"strings"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/types"
)

// Kind identifies a token. The lexer produces source kinds; the checker
// rewrites them into resolved kinds that the stack machine executes.
type Kind uint8

// Token kinds.
const (
	KNop Kind = iota
	KValue

	// source only
	KIdentifier
	KBlock
	KLambda
	KArrayOf
	KMemoryOf
	KOptional
	KEmpty
	KMutability
	KCast
	KNew
	KStackSize

	// source and resolved
	KCallPtr
	KReturn
	KExit
	KAssert
	KUnreachable
	KDebugPrint
	KStackDrop
	KStackDup
	KStackRot

	// resolved only
	KVariable
	KContextOpen
	KContextClose
	KJump
	KJumpIf
	KJumpIfNot
	KJumpIfEmpty
	KSwitch
	KCallProc
	KCallNative
	KConvert
	KArgConvert
	KNewTuple
	KNewArray
	KCollect
	KWrap
	KFieldGet
	KFieldSet
	KTraitCall
	KCurriedLambda
	KOverloadedPtr

	numKinds
)

// NumKinds is the size of a table indexed by Kind.
const NumKinds = int(numKinds)

var kindNames = [...]string{
	KNop:           "nop",
	KValue:         "value",
	KIdentifier:    "identifier",
	KBlock:         "block",
	KLambda:        "lambda",
	KArrayOf:       "array",
	KMemoryOf:      "memory",
	KOptional:      "optional",
	KEmpty:         "empty",
	KMutability:    "mutability",
	KCast:          "cast",
	KNew:           "new",
	KStackSize:     "#stackSize",
	KCallPtr:       "()",
	KReturn:        "return",
	KExit:          "exit",
	KAssert:        "assert",
	KUnreachable:   "unreachable",
	KDebugPrint:    "debugPrint",
	KStackDrop:     "drop",
	KStackDup:      "dup",
	KStackRot:      "rot",
	KVariable:      "variable",
	KContextOpen:   "context_open",
	KContextClose:  "context_close",
	KJump:          "jump",
	KJumpIf:        "jump_if",
	KJumpIfNot:     "jump_if_not",
	KJumpIfEmpty:   "jump_if_empty",
	KSwitch:        "switch",
	KCallProc:      "call",
	KCallNative:    "native",
	KConvert:       "convert",
	KArgConvert:    "arg_convert",
	KNewTuple:      "new_tuple",
	KNewArray:      "new_array",
	KCollect:       "collect",
	KWrap:          "wrap",
	KFieldGet:      "get",
	KFieldSet:      "set",
	KTraitCall:     "trait_call",
	KCurriedLambda: "curried_lambda",
	KOverloadedPtr: "overloaded_ptr",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IdentKind distinguishes the forms an identifier word takes in source.
type IdentKind uint8

// Identifier forms.
const (
	IdentWord         IdentKind = iota // name
	IdentProcPtr                       // @name
	IdentGetField                      // .name
	IdentSetField                      // .name =
	IdentWrite                         // name =
	IdentDeclare                       // name =:
	IdentImplicitDecl                  // name =::
)

var identSuffix = [...]string{
	IdentWord:         "",
	IdentProcPtr:      "",
	IdentGetField:     "",
	IdentSetField:     " =",
	IdentWrite:        " =",
	IdentDeclare:      " =:",
	IdentImplicitDecl: " =::",
}

// BlockKind tags control structure and type block tokens.
type BlockKind uint8

// Block kinds.
const (
	BlockIf BlockKind = iota
	BlockElseIf
	BlockElse
	BlockEnd
	BlockWhile
	BlockDo
	BlockSwitch
	BlockCase
	BlockDefault
	BlockBreak
	BlockArray
	BlockTuple
	BlockUnion
	BlockArrow
	BlockClose
)

var blockNames = [...]string{
	BlockIf:      "if{",
	BlockElseIf:  "_if",
	BlockElse:    "else",
	BlockEnd:     "}",
	BlockWhile:   "while{",
	BlockDo:      "do",
	BlockSwitch:  "switch{",
	BlockCase:    "case",
	BlockDefault: "default",
	BlockBreak:   "break",
	BlockArray:   "{",
	BlockTuple:   "(",
	BlockUnion:   "union(",
	BlockArrow:   "=>",
	BlockClose:   ")",
}

func (bk BlockKind) String() string {
	if int(bk) < len(blockNames) {
		return blockNames[bk]
	}
	return "invalid block"
}

// Access is the operation a variable token performs.
type Access uint8

// Variable accesses.
const (
	Read Access = iota
	Write
	Declare
)

func (a Access) String() string {
	switch a {
	case Write:
		return "write"
	case Declare:
		return "declare"
	}
	return "read"
}

// SwitchTable maps case label keys to jump deltas, relative to the switch
// token.
type SwitchTable struct {
	Cases   map[uint64]int
	Default int
}

// Capture names where a curried lambda takes one captured value from.
type Capture struct {
	Kind  VarKind
	Level int
	Index int
}

// Token is one instruction. Which fields are meaningful depends on Kind.
type Token struct {
	Kind Kind
	Pos  fileinput.Location

	Name   string
	Ident  IdentKind
	Mut    types.Mutability
	Access types.Accessibility
	Block  BlockKind

	Value  Value
	Type   *types.Type
	Var    *Variable
	VarOp  Access
	Proc   *Procedure
	Native *Native
	Source *ProcSource

	Delta    int
	Index    int
	Args     [2]int
	Table    *SwitchTable
	Captures []Capture
	Impl     []Value
	Message  string
}

// IsValue reports whether the token only pushes a constant.
func (tok Token) IsValue() bool { return tok.Kind == KValue }

func (tok Token) String() string {
	var sb strings.Builder
	switch tok.Kind {
	case KValue:
		sb.WriteString(tok.Value.String())
	case KIdentifier:
		switch tok.Ident {
		case IdentProcPtr:
			sb.WriteByte('@')
		case IdentGetField, IdentSetField:
			sb.WriteByte('.')
		}
		sb.WriteString(tok.Name)
		if tok.Mut != types.Default {
			sb.WriteByte(' ')
			sb.WriteString(tok.Mut.String())
		}
		sb.WriteString(identSuffix[tok.Ident])
	case KBlock:
		sb.WriteString(tok.Block.String())
	case KLambda:
		sb.WriteString("lambda(...)")
	case KMutability:
		sb.WriteString(tok.Mut.String())
	case KStackDrop, KStackDup, KStackRot:
		fmt.Fprintf(&sb, "%v(%d,%d)", tok.Kind, tok.Args[0], tok.Args[1])
	case KVariable:
		fmt.Fprintf(&sb, "%v %v", tok.VarOp, tok.Var)
	case KJump, KJumpIf, KJumpIfNot, KJumpIfEmpty:
		fmt.Fprintf(&sb, "%v %+d", tok.Kind, tok.Delta)
	case KSwitch:
		sb.WriteString("switch")
		if tok.Table != nil {
			fmt.Fprintf(&sb, " %d cases default %+d", len(tok.Table.Cases), tok.Table.Default)
		}
	case KCallProc, KCurriedLambda:
		sb.WriteString(tok.Kind.String())
		if tok.Proc != nil {
			sb.WriteByte(' ')
			sb.WriteString(tok.Proc.Label)
		}
	case KCallNative:
		sb.WriteString("native")
		if tok.Native != nil {
			sb.WriteByte(' ')
			sb.WriteString(tok.Native.Label)
		}
	case KConvert, KWrap, KNewArray:
		fmt.Fprintf(&sb, "%v %v", tok.Kind, tok.Type)
	case KArgConvert:
		fmt.Fprintf(&sb, "%v @%d %v", tok.Kind, tok.Index, tok.Type)
	case KNewTuple, KCollect:
		fmt.Fprintf(&sb, "%v %v/%d", tok.Kind, tok.Type, tok.Index)
	case KFieldGet, KFieldSet, KTraitCall:
		fmt.Fprintf(&sb, "%v %v", tok.Kind, tok.Name)
	case KAssert:
		fmt.Fprintf(&sb, "assert %q", tok.Message)
	case KOverloadedPtr:
		fmt.Fprintf(&sb, "@%v?", tok.Name)
	default:
		sb.WriteString(tok.Kind.String())
	}
	return sb.String()
}
