// Package natives provides the procedures implemented in Go that every
// program may call: arithmetic, comparison, logic, array access and output.
package natives

import (
	"errors"
	"fmt"
	"io"

	"github.com/jcorbin/goconcat/internal/fileinput"
	"github.com/jcorbin/goconcat/internal/ir"
	"github.com/jcorbin/goconcat/internal/runeio"
	"github.com/jcorbin/goconcat/internal/types"
)

// Runtime errors returned by natives.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrIndexRange     = errors.New("index out of range")
)

// All returns a fresh set of natives; generic ones get their own type
// parameters on every call.
func All() []*ir.Native {
	var ns []*ir.Native
	ns = append(ns, arithmetic()...)
	ns = append(ns, comparisons()...)
	ns = append(ns, logic()...)
	ns = append(ns, containers()...)
	ns = append(ns, output()...)
	return ns
}

func sig(in []*types.Type, out ...*types.Type) *types.Type { return types.Proc(in, out) }

func in(ts ...*types.Type) []*types.Type { return ts }

func pure(name string, t *types.Type, fn ir.NativeFunc) *ir.Native {
	return &ir.Native{Label: name, Type: t, Pure: true, Fn: fn}
}

func one(v ir.Value) ([]ir.Value, error) { return []ir.Value{v}, nil }

func arithmetic() []*ir.Native {
	var ns []*ir.Native
	intOp := func(name string, op func(a, b int64) (int64, error)) {
		ns = append(ns, pure(name, sig(in(types.Int, types.Int), types.Int), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			r, err := op(args[0].AsInt(), args[1].AsInt())
			if err != nil {
				return nil, err
			}
			return one(ir.Int(r))
		}))
	}
	uintOp := func(name string, op func(a, b uint64) (uint64, error)) {
		ns = append(ns, pure(name, sig(in(types.Uint, types.Uint), types.Uint), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			r, err := op(args[0].AsUint(), args[1].AsUint())
			if err != nil {
				return nil, err
			}
			return one(ir.Uint(r))
		}))
	}
	floatOp := func(name string, op func(a, b float64) float64) {
		ns = append(ns, pure(name, sig(in(types.Float, types.Float), types.Float), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Float(op(args[0].AsFloat(), args[1].AsFloat())))
		}))
	}

	intOp("+", func(a, b int64) (int64, error) { return a + b, nil })
	intOp("-", func(a, b int64) (int64, error) { return a - b, nil })
	intOp("*", func(a, b int64) (int64, error) { return a * b, nil })
	intOp("/", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	})
	intOp("%", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a % b, nil
	})
	intOp("&", func(a, b int64) (int64, error) { return a & b, nil })
	intOp("|", func(a, b int64) (int64, error) { return a | b, nil })
	intOp("^", func(a, b int64) (int64, error) { return a ^ b, nil })
	intOp("<<", func(a, b int64) (int64, error) { return a << uint64(b), nil })
	intOp(">>", func(a, b int64) (int64, error) { return a >> uint64(b), nil })

	uintOp("+", func(a, b uint64) (uint64, error) { return a + b, nil })
	uintOp("-", func(a, b uint64) (uint64, error) { return a - b, nil })
	uintOp("*", func(a, b uint64) (uint64, error) { return a * b, nil })
	uintOp("/", func(a, b uint64) (uint64, error) {
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	})
	uintOp("%", func(a, b uint64) (uint64, error) {
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a % b, nil
	})
	uintOp("&", func(a, b uint64) (uint64, error) { return a & b, nil })
	uintOp("|", func(a, b uint64) (uint64, error) { return a | b, nil })
	uintOp("^", func(a, b uint64) (uint64, error) { return a ^ b, nil })

	floatOp("+", func(a, b float64) float64 { return a + b })
	floatOp("-", func(a, b float64) float64 { return a - b })
	floatOp("*", func(a, b float64) float64 { return a * b })
	floatOp("/", func(a, b float64) float64 { return a / b })

	ns = append(ns,
		pure("-_", sig(in(types.Int), types.Int), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Int(-args[0].AsInt()))
		}),
		pure("-_", sig(in(types.Float), types.Float), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Float(-args[0].AsFloat()))
		}),
		pure("~", sig(in(types.Int), types.Int), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Int(^args[0].AsInt()))
		}),
	)
	return ns
}

func comparisons() []*ir.Native {
	var ns []*ir.Native
	order := func(t *types.Type, less func(a, b ir.Value) bool) {
		b := func(name string, f func(a, b ir.Value) bool) {
			ns = append(ns, pure(name, sig(in(t, t), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
				return one(ir.Bool(f(args[0], args[1])))
			}))
		}
		b("<", less)
		b(">", func(a, b ir.Value) bool { return less(b, a) })
		b("<=", func(a, b ir.Value) bool { return !less(b, a) })
		b(">=", func(a, b ir.Value) bool { return !less(a, b) })
	}
	order(types.Int, func(a, b ir.Value) bool { return a.AsInt() < b.AsInt() })
	order(types.Uint, func(a, b ir.Value) bool { return a.AsUint() < b.AsUint() })
	order(types.Float, func(a, b ir.Value) bool { return a.AsFloat() < b.AsFloat() })
	order(types.Byte, func(a, b ir.Value) bool { return a.AsUint() < b.AsUint() })
	order(types.Codepoint, func(a, b ir.Value) bool { return a.AsCodepoint() < b.AsCodepoint() })

	T := types.NewGeneric("T", true, fileinput.Location{})
	ns = append(ns,
		pure("==", sig(in(T, T), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(ir.Equal(args[0], args[1])))
		}),
		pure("!=", sig(in(T, T), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(!ir.Equal(args[0], args[1])))
		}),
	)
	return ns
}

func logic() []*ir.Native {
	return []*ir.Native{
		pure("!", sig(in(types.Bool), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(!args[0].AsBool()))
		}),
		pure("&", sig(in(types.Bool, types.Bool), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(args[0].AsBool() && args[1].AsBool()))
		}),
		pure("|", sig(in(types.Bool, types.Bool), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(args[0].AsBool() || args[1].AsBool()))
		}),
		pure("^", sig(in(types.Bool, types.Bool), types.Bool), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.Bool(args[0].AsBool() != args[1].AsBool()))
		}),
	}
}

func index(args []ir.Value) (*ir.Array, int, error) {
	arr := args[0].Array()
	i := args[1].AsInt()
	if arr == nil || i < 0 || i >= int64(len(arr.Elems)) {
		n := 0
		if arr != nil {
			n = len(arr.Elems)
		}
		return nil, 0, fmt.Errorf("%w: %d of %d", ErrIndexRange, i, n)
	}
	return arr, int(i), nil
}

func containers() []*ir.Native {
	var ns []*ir.Native
	for _, of := range []func(*types.Type) *types.Type{types.ArrayOf, types.MemoryOf} {
		T := types.NewGeneric("T", true, fileinput.Location{})
		ro := of(T)
		rw := of(T).WithMutability(types.Mutable)
		ns = append(ns,
			pure("[]", sig(in(ro, types.Int), T), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
				arr, i, err := index(args)
				if err != nil {
					return nil, err
				}
				return one(arr.Elems[i])
			}),
			&ir.Native{Label: "[]=", Type: sig(in(rw, types.Int, T)), Fn: func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
				arr, i, err := index(args)
				if err != nil {
					return nil, err
				}
				arr.Elems[i] = args[2]
				return nil, nil
			}},
			pure("length", sig(in(ro), types.Int), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
				if arr := args[0].Array(); arr != nil {
					return one(ir.Int(int64(len(arr.Elems))))
				}
				return one(ir.Int(0))
			}),
		)
	}

	T := types.NewGeneric("T", true, fileinput.Location{})
	ns = append(ns,
		&ir.Native{Label: "push", Type: sig(in(types.MemoryOf(T).WithMutability(types.Mutable), T)), Fn: func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			arr := args[0].Array()
			if arr == nil {
				return nil, fmt.Errorf("push: %w", ErrIndexRange)
			}
			arr.Elems = append(arr.Elems, args[1])
			return nil, nil
		}},
		pure("+", sig(in(types.String, types.String), types.String), func(_ ir.Env, args []ir.Value) ([]ir.Value, error) {
			return one(ir.String(args[0].AsString() + args[1].AsString()))
		}),
	)
	return ns
}

func output() []*ir.Native {
	var ns []*ir.Native
	printer := func(name string, t *types.Type, format func(ir.Value) string) {
		ns = append(ns, &ir.Native{Label: name, Type: sig(in(t)), Fn: func(env ir.Env, args []ir.Value) ([]ir.Value, error) {
			return nil, write(env, format(args[0]))
		}})
	}
	for _, name := range []string{"print", "println"} {
		nl := ""
		if name == "println" {
			nl = "\n"
		}
		printer(name, types.String, func(v ir.Value) string { return v.AsString() + nl })
		printer(name, types.Codepoint, func(v ir.Value) string { return string(v.AsCodepoint()) + nl })
		printer(name, types.Any, func(v ir.Value) string { return v.String() + nl })
	}
	return ns
}

func write(env ir.Env, s string) error {
	if env == nil {
		return errors.New("no output available")
	}
	var w io.Writer = env.Output()
	_, err := runeio.WriteANSIString(w, s)
	return err
}
