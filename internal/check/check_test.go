package check_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/goconcat/internal/check"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/natives"
	"github.com/jcorbin/goconcat/internal/parse"
	"github.com/jcorbin/goconcat/internal/scope"
	"github.com/jcorbin/goconcat/internal/types"
)

func checkSource(t *testing.T, src string, opts ...check.Option) (*check.Checker, *check.Result, error) {
	prog, err := parse.ParseString("test", src)
	require.NoError(t, err, "parse")
	c := check.New(append([]check.Option{check.WithNatives(natives.All()...)}, opts...)...)
	require.NoError(t, c.Load(prog), "load")
	res, err := c.Finish()
	return c, res, err
}

func mustCheck(t *testing.T, src string, opts ...check.Option) *check.Result {
	_, res, err := checkSource(t, src, opts...)
	require.NoError(t, err, "%+v", err)
	return res
}

func tokenStrings(toks []ir.Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.String()
	}
	return out
}

func stackTypes(fs []check.Frame) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Type.String()
	}
	return out
}

func TestCheckCode(t *testing.T) {
	for _, tc := range []struct {
		name  string
		src   string
		code  []string
		stack []string
	}{
		{"fold", "3 4 +", []string{"7"}, []string{"int"}},
		{"fold chain", "3 4 + 2 *", []string{"14"}, []string{"int"}},
		{"drop const", "1 2 drop", []string{"1"}, []string{"int"}},
		{"dup const", "1 dup", []string{"1", "1"}, []string{"int", "int"}},
		{"swap", "1 2 swap", []string{"1", "2", "rot(2,1)"}, []string{"int", "int"}},
		{"natives", `"hi" println 1 2 + println`,
			[]string{`"hi"`, "native println", "3", "native println"}, []string{}},
		{"assert", `true "ok" assert`, []string{}, []string{}},
		{"stack size", "1 2 #stackSize", []string{"1", "2", "2"}, []string{"int", "int", "int"}},
		{"struct fold", "Point struct{ int :x int :y }\n1 2 Point new .y", []string{"2"}, []string{"int"}},
		{"generic struct", "Box struct{ T <> T :value }\n1 int Box new .value", []string{"1"}, []string{"int"}},
		{"optional", "1 optional", []string{"1 optional"}, []string{"int optional"}},
		{"drop placeholder", "@print drop", []string{}, []string{}},
		{"constant variable", "2 x mut~ =:: x x *", []string{"4"}, []string{"int"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := mustCheck(t, tc.src)
			assert.Equal(t, tc.code, tokenStrings(res.Code))
			assert.Equal(t, tc.stack, stackTypes(res.Stack))
		})
	}
}

func TestCheckErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		err  string
	}{
		{"underflow", "+", "not enough values on the stack"},
		{"undeclared", "frob", "undeclared identifier frob"},
		{"dead code", "1 exit 2", "unreachable code"},
		{"exit code", `"x" exit`, "exit code has to be an integer"},
		{"assert", `false "boom" assert`, "assertion failed: boom"},
		{"merge types", `true if{ 1 else "s" }`, "cannot merge"},
		{"merge height", "true if{ 1 }", "cannot merge stack"},
		{"bad condition", "1 if{ }", "condition has to be a bool or an optional"},
		{"while body", "0 while{ dup 10 < do 1 }", "while body modifies the stack"},
		{"while without do", "0 while{ }", "while{ without do"},
		{"missing break", "1 switch{ 1 case 2 }", "missing break statement"},
		{"duplicate label", "1 switch{ 1 case break 1 case break }", "duplicate case label"},
		{"default only", "1 switch{ default break }", "switch must contain at least one case"},
		{"unresolved placeholder", "@print", "unresolved overloaded procedure pointer @print"},
		{"return mismatch", "f proc( int => int int ){ }", "return value [int] does not match signature [int int]"},
		{"write immutable", "p proc( int ){ x mut~ =:: 2 x = }", "cannot write to immutable variable x"},
		{"write constant", "1 x mut~ =:: 2 x =", "cannot write to constant x"},
		{"no match", `"a" 1 +`, "no version of + matches the given arguments"},
		{"array elements", `{ 1 "a" }`, "does not fit"},
		{"field without mut", "Point struct{ int :x }\n2 1 Point new .x =", "is not mutable"},
		{"do-while body", "0 while{ 1 true do }", "do-while body modifies the stack"},
		{"pointer resolved twice",
			"f proc( int => int ){ }\nf proc( int int => int ){ drop }\n@f true if{ drop else ( int => int ) cast drop }",
			"overloaded procedure pointer @f resolved more than once"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := checkSource(t, tc.src)
			require.Error(t, err)
			assert.Contains(t, fmt.Sprintf("%+v", err), tc.err)
		})
	}
}

func TestGenericInstances(t *testing.T) {
	src := strings.Join([]string{
		"id proc( T <> T => T ){ }",
		"1 int id 2 int id",
	}, "\n")
	c, res, err := checkSource(t, src)
	require.NoError(t, err, "%+v", err)
	assert.Equal(t, []string{"1", "call id<int>", "2", "call id<int>"}, tokenStrings(res.Code))
	assert.Equal(t, []string{"int", "int"}, stackTypes(res.Stack))

	d, ok := c.Lookup("id")
	require.True(t, ok)
	pd, ok := d.(*scope.ProcDecl)
	require.True(t, ok)
	assert.Len(t, pd.Instances, 1, "instances are shared between calls")
	assert.Same(t, res.Code[1].Proc, res.Code[3].Proc)
}

func TestImplicitGeneric(t *testing.T) {
	res := mustCheck(t, "id proc( T <?> T => T ){ }\n1 id \"s\" id")
	assert.Equal(t, []string{"1", "call id<int>", `"s"`, "call id<byte array>"}, tokenStrings(res.Code))
	assert.Equal(t, []string{"int", "byte array"}, stackTypes(res.Stack))
}

func TestGenericInstanceError(t *testing.T) {
	src := strings.Join([]string{
		"twice proc( T <?> T => T ){ dup + }",
		"true twice",
	}, "\n")
	_, _, err := checkSource(t, src)
	require.Error(t, err)
	full := fmt.Sprintf("%+v", err)
	assert.Contains(t, full, "in twice<bool>")
	assert.Contains(t, full, "no version of + matches")
}

func TestOverloadedPointer(t *testing.T) {
	decls := "f proc( int => int ){ }\nf proc( int int => int ){ drop }\n"

	t.Run("cast", func(t *testing.T) {
		res := mustCheck(t, decls+"1 2 @f ( int => int ) cast ()")
		assert.Equal(t, []string{"1", "2", "call f"}, tokenStrings(res.Code))
		assert.Equal(t, []string{"int", "int"}, stackTypes(res.Stack))
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, _, err := checkSource(t, decls+"1 2 @f ()")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one version of @f")
	})

	t.Run("no match", func(t *testing.T) {
		_, _, err := checkSource(t, decls+"@f ( string => ) cast drop")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no version of @f matches")
	})

	t.Run("dropped on both branches", func(t *testing.T) {
		res := mustCheck(t, decls+"@f true if{ drop else drop }")
		assert.Equal(t, []string{}, stackTypes(res.Stack))
	})

	t.Run("resolved then dropped", func(t *testing.T) {
		res := mustCheck(t, decls+"@f true if{ ( int => int ) cast drop else drop }")
		assert.Equal(t, []string{}, stackTypes(res.Stack))
	})
}

func TestOverloadOrder(t *testing.T) {
	orders := [][]int{{0, 1, 2}, {2, 0, 1}, {1, 2, 0}, {2, 1, 0}}
	declare := func(decls []string, order []int) string {
		var sb strings.Builder
		for _, i := range order {
			sb.WriteString(decls[i])
			sb.WriteString("\n")
		}
		return sb.String()
	}

	t.Run("ambiguous", func(t *testing.T) {
		decls := []string{
			"f proc( int optional int optional ){ drop drop }",
			"f proc( var int optional ){ drop drop }",
			"f proc( union( int bool ) var ){ drop drop }",
		}
		for _, order := range orders {
			t.Run(fmt.Sprint(order), func(t *testing.T) {
				_, _, err := checkSource(t, declare(decls, order)+"1 2 f")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "more than one version of f matches")
			})
		}
	})

	t.Run("unique best", func(t *testing.T) {
		decls := []string{
			"g proc( int => int ){ }",
			"g proc( var ){ drop }",
		}
		for _, order := range [][]int{{0, 1}, {1, 0}} {
			t.Run(fmt.Sprint(order), func(t *testing.T) {
				res := mustCheck(t, declare(decls, order)+"1 g")
				assert.Equal(t, []string{"int"}, stackTypes(res.Stack))
			})
		}
	})
}

func procBody(t *testing.T, c *check.Checker, name string) []ir.Token {
	d, ok := c.Lookup(name)
	require.True(t, ok, "lookup %v", name)
	pd, ok := d.(*scope.ProcDecl)
	require.True(t, ok, "%v is a procedure", name)
	require.NotNil(t, pd.Proc)
	return pd.Proc.Body
}

func TestOverloadPreference(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		in   string
	}{
		{"exact", "p proc( int ){ 1 + drop }", "int"},
		{"float", "p proc( float ){ 1.0 + drop }", "float"},
		{"string over var", "p proc( string ){ println }", "byte array"},
		{"var fallback", "p proc( bool ){ println }", "var"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, _, err := checkSource(t, tc.src)
			require.NoError(t, err, "%+v", err)
			var called *ir.Native
			for _, tok := range procBody(t, c, "p") {
				if tok.Kind == ir.KCallNative {
					called = tok.Native
				}
			}
			require.NotNil(t, called)
			assert.Equal(t, tc.in, called.Type.In()[0].String())
		})
	}
}

func TestEnumSwitch(t *testing.T) {
	const decl = "Color enum{ red green blue }\n"

	t.Run("missing", func(t *testing.T) {
		_, _, err := checkSource(t, decl+"Color .red switch{ red case 1 break green case 2 break }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enum switch does not cover blue")
	})

	t.Run("covered", func(t *testing.T) {
		res := mustCheck(t, decl+"Color .red switch{ red case 1 break green blue case 2 break }")
		require.Len(t, res.Stack, 1)
		assert.Equal(t, "int", res.Stack[0].Type.String())
		assert.False(t, res.Stack[0].IsConst())
	})

	t.Run("covered with default", func(t *testing.T) {
		_, _, err := checkSource(t, decl+"Color .red switch{ red green blue case 1 break default 2 break }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default is unreachable")
	})

	t.Run("partial with default", func(t *testing.T) {
		var logs []string
		logf := func(mess string, args ...interface{}) { logs = append(logs, fmt.Sprintf(mess, args...)) }
		res := mustCheck(t, decl+"Color .red switch{ red case 1 break default 2 break }", check.WithLogf(logf))
		assert.Equal(t, []string{"int"}, stackTypes(res.Stack))
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0], "instead of cases for green, blue")
	})
}

func TestIfMerge(t *testing.T) {
	t.Run("untouched constant", func(t *testing.T) {
		res := mustCheck(t, "1 true if{ 2 else 3 }")
		require.Len(t, res.Stack, 2)
		assert.True(t, res.Stack[0].IsConst(), "shared by both branches")
		assert.False(t, res.Stack[1].IsConst())
	})

	t.Run("different constants", func(t *testing.T) {
		res := mustCheck(t, "true if{ 1 else 2 }")
		require.Len(t, res.Stack, 1)
		assert.Equal(t, "int", res.Stack[0].Type.String())
		assert.False(t, res.Stack[0].IsConst())
	})

	t.Run("else if", func(t *testing.T) {
		res := mustCheck(t, "true if{ 1 else false _if 2 else 3 }")
		assert.Equal(t, []string{"int"}, stackTypes(res.Stack))
	})

	t.Run("optional", func(t *testing.T) {
		res := mustCheck(t, "p proc( int optional ){ if{ drop } }")
		assert.Empty(t, res.Stack)
	})
}

func TestWhile(t *testing.T) {
	res := mustCheck(t, "0 while{ dup 10 < do 1 + }")
	assert.Equal(t, []string{"int"}, stackTypes(res.Stack))
	assert.False(t, res.Stack[0].IsConst(), "loop carried values are not constant")

	res = mustCheck(t, "0 while{ 1 + dup 10 < do }")
	assert.Equal(t, []string{"int"}, stackTypes(res.Stack))
}

func TestArrayLiteral(t *testing.T) {
	res := mustCheck(t, "{ 1 2 3 }")
	require.Len(t, res.Code, 1)
	require.Len(t, res.Stack, 1)
	assert.Equal(t, types.KindArray, res.Stack[0].Type.Kind())
	assert.Equal(t, "int", res.Stack[0].Type.Content().String())
	assert.True(t, res.Stack[0].IsConst())
}

func TestLambda(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		res := mustCheck(t, "lambda( int => int ){ 1 + }")
		require.Len(t, res.Stack, 1)
		assert.Equal(t, types.KindProc, res.Stack[0].Type.Kind())
		assert.True(t, res.Stack[0].IsConst())
	})

	t.Run("inferred outputs", func(t *testing.T) {
		res := mustCheck(t, "lambda( int ){ dup }")
		require.Len(t, res.Stack, 1)
		assert.Equal(t, "( int => int int )", res.Stack[0].Type.String())
	})

	t.Run("direct call", func(t *testing.T) {
		c, _, err := checkSource(t, "p proc( int => int ){ lambda( int => int ){ 1 + } () }")
		require.NoError(t, err, "%+v", err)
		body := procBody(t, c, "p")
		require.Len(t, body, 1)
		assert.Equal(t, ir.KCallProc, body[0].Kind)
	})
}

func TestCurrying(t *testing.T) {
	t.Run("curried lambda", func(t *testing.T) {
		mustCheck(t, "p proc( int => int ){ x =:: lambda( => int ){ x } () }")
	})

	t.Run("write after capture", func(t *testing.T) {
		_, _, err := checkSource(t, "p proc( int ){ x =:: lambda( ){ x drop } drop 2 x = }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot write to curried variable x")
	})

	t.Run("capture after write", func(t *testing.T) {
		_, _, err := checkSource(t, "p proc( int ){ x =:: 2 x = lambda( ){ x drop } drop }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot curry mutable variable")
	})

	t.Run("lambda writes capture", func(t *testing.T) {
		_, _, err := checkSource(t, "p proc( int ){ x =:: lambda( ){ 2 x = } drop }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot write to curried variable x")
	})
}

func TestTraits(t *testing.T) {
	src := strings.Join([]string{
		"Shape trait{ area proc( => float ) }",
		"Square struct{ float :side }",
		"implement{ Shape for Square area proc( Square => float ){ .side } }",
		"2.0 Square new Shape cast .area",
	}, "\n")
	res := mustCheck(t, src)
	assert.Equal(t, []string{"float"}, stackTypes(res.Stack))
	require.NotEmpty(t, res.Code)
	last := res.Code[len(res.Code)-1]
	assert.Equal(t, ir.KTraitCall, last.Kind)
	assert.Equal(t, "area", last.Name)
}

func TestMissingImplementation(t *testing.T) {
	src := strings.Join([]string{
		"Shape trait{ area proc( => float ) perimeter proc( => float ) }",
		"Square struct{ float :side }",
		"implement{ Shape for Square area proc( Square => float ){ .side } }",
	}, "\n")
	_, _, err := checkSource(t, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing implementation of perimeter")
}

func TestDeterministic(t *testing.T) {
	src := strings.Join([]string{
		"id proc( T <?> T => T ){ }",
		"f proc( int => int ){ 1 + }",
		"f proc( string => string ){ \"!\" + }",
		"p proc( int string ){ f println id f println }",
	}, "\n")
	var first []string
	for i := 0; i < 5; i++ {
		c, res, err := checkSource(t, src)
		require.NoError(t, err, "%+v", err)
		got := append(tokenStrings(res.Code), tokenStrings(procBody(t, c, "p"))...)
		if i == 0 {
			first = got
			continue
		}
		assert.Equal(t, first, got, "run %d", i)
	}
}

func TestTypeCheck(t *testing.T) {
	c := check.New(check.WithNatives(natives.All()...))
	prog, err := parse.ParseString("snippet", "1 +")
	require.NoError(t, err)

	start := []check.Frame{check.FrameOf(types.Int, prog.End)}
	code, stack, err := c.TypeCheck(prog.Code, start, []*types.Type{types.Int}, prog.End)
	require.NoError(t, err, "%+v", err)
	assert.Equal(t, []string{"1", "native +"}, tokenStrings(code))
	assert.Equal(t, []string{"int"}, stackTypes(stack))

	_, _, err = c.TypeCheck(prog.Code, start, []*types.Type{types.String}, prog.End)
	assert.Error(t, err)
}

func TestInvalidNative(t *testing.T) {
	prog, err := parse.ParseString("test", "1")
	require.NoError(t, err)
	c := check.New(
		check.WithNatives(natives.All()...),
		check.WithNatives(&ir.Native{Label: "broken", Type: types.Proc(nil, nil)}),
	)
	err = c.Load(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid native "broken"`)
}
