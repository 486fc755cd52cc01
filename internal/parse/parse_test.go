package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/types"
)

func tokenStrings(toks []ir.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.String()
	}
	return out
}

func TestLex(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want []string
	}{
		{"numbers", "1 -2 0x1f 0b11 7u 1.5 -2e3 NaN -Infinity",
			[]string{"1", "-2", "31", "3", "7u", "1.5", "-2000.0", "NaN", "-Infinity"}},
		{"literals", `"a b\n" 'x' ' ' '<ESC>' true`,
			[]string{`"a b\n"`, "'x'", "' '", `'\x1b'`, "true"}},
		{"comments", "1 ## rest of line\n2 #+ block\ncomment +# 3",
			[]string{"1", "2", "3"}},
		{"types", "int array mut string optional",
			[]string{"int", "array", "mut", "byte array", "optional"}},
		{"identifiers", "x @f .y .0 x = y mut =:: z public =: p .x =",
			[]string{"x", "@f", ".y", ".0", "x =", "y mut =::", "z =:", "p", ".x ="}},
		{"blocks", "if{ else _if } while{ do } switch{ case break default } { ( => ) union( }",
			[]string{"if{", "else", "_if", "}", "while{", "do", "}", "switch{", "case", "break", "default", "}", "{", "(", "=>", ")", "union(", "}"}},
		{"stack", "dup over drop swap rot ??drop",
			[]string{"dup(0,1)", "dup(1,1)", "drop(0,1)", "rot(2,1)", "rot(3,1)", "drop(-1,-1)"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := ParseString("test", tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tokenStrings(prog.Code))
		})
	}
}

func TestLexPositions(t *testing.T) {
	prog, err := ParseString("pos", "1\n  foo")
	require.NoError(t, err)
	require.Len(t, prog.Code, 2)
	assert.Equal(t, "pos:1:1", prog.Code[0].Pos.String())
	assert.Equal(t, "pos:2:3", prog.Code[1].Pos.String())
}

func TestDeclarations(t *testing.T) {
	src := strings.Join([]string{
		"id proc( T <?> T => T ){ }",
		"Point struct{ int :x float :y mut }",
		"Point3 struct{ Point extend int :z private }",
		"Box struct{ T <> T :value }",
		"Color enum{ red green }",
		"Shape trait{ area proc( => float ) }",
		"implement{ Shape for Point area proc( Point => float ){ drop 1.0 } }",
		"1 id if{ lambda( int ){ dup } drop }",
	}, "\n")
	prog, err := ParseString("decls", src)
	require.NoError(t, err)

	require.Len(t, prog.Procs, 1)
	id := prog.Procs[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, []ir.Generic{{Name: "T", Implicit: true, Pos: id.Generics[0].Pos}}, id.Generics)
	assert.Equal(t, []string{"T"}, tokenStrings(id.In))
	assert.Equal(t, []string{"T"}, tokenStrings(id.Out))
	assert.True(t, id.HasOut)

	require.Len(t, prog.Structs, 3)
	pt := prog.Structs[0]
	require.Len(t, pt.Fields, 2)
	assert.Equal(t, "y", pt.Fields[1].Name)
	assert.Equal(t, types.Mutable, pt.Fields[1].Mut, "modifier after the name belongs to the field")
	assert.Equal(t, []string{"Point"}, tokenStrings(prog.Structs[1].Parent))
	assert.Equal(t, types.Private, prog.Structs[1].Fields[0].Access)
	assert.Len(t, prog.Structs[2].Generics, 1)

	require.Len(t, prog.Enums, 1)
	assert.Equal(t, []string{"red", "green"}, prog.Enums[0].Entries)

	require.Len(t, prog.Traits, 1)
	assert.Equal(t, []string{"float"}, tokenStrings(prog.Traits[0].Fields[0].Out))

	require.Len(t, prog.Impls, 1)
	assert.Equal(t, []string{"Shape"}, tokenStrings(prog.Impls[0].Trait))
	assert.Equal(t, []string{"Point"}, tokenStrings(prog.Impls[0].For))
	require.Len(t, prog.Impls[0].Procs, 1)

	assert.Equal(t, []string{"1", "id", "if{", "lambda(...)", "drop(0,1)", "}"}, tokenStrings(prog.Code))
	lambda := prog.Code[3].Source
	assert.False(t, lambda.HasOut)
	assert.Equal(t, []string{"int"}, tokenStrings(lambda.In))
	assert.Equal(t, []string{"dup(0,1)"}, tokenStrings(lambda.Body))
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want string
	}{
		{`"open`, "unterminated literal"},
		{"1 }", "unexpected }"},
		{"if{ 1", "missing }"},
		{"#+ never closed", "unterminated block comment"},
		{"f proc( int ) 1", "expected ){"},
		{"1 if{ g proc( ){ } }", "only allowed at the root level"},
		{"public", "must precede an assignment operator"},
		{"x mut =", "only allowed in declarations"},
		{"1u- 2", "invalid number literal"},
		{"@", "invalid identifier"},
		{"-3u", "cannot be negative"},
		{"S struct{ int }", "type without field name"},
		{"E enum{ a a }", "duplicate enum entry"},
	} {
		t.Run(tc.src, func(t *testing.T) {
			_, err := ParseString("bad", tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
