package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	for _, tc := range []struct {
		name    string
		initial []int
		op      func(st *Stack[int]) error
		want    []int
		wantErr error
	}{
		{"push", nil, func(st *Stack[int]) error { st.Push(1); st.Push(2); return nil }, []int{1, 2}, nil},
		{"pop underflow", nil, func(st *Stack[int]) error { _, err := st.Pop(); return err }, []int{}, ErrUnderflow},
		{"dup top", []int{1, 2}, func(st *Stack[int]) error { return st.Dup(1) }, []int{1, 2, 2}, nil},
		{"dup over", []int{1, 2}, func(st *Stack[int]) error { return st.Dup(2) }, []int{1, 2, 1}, nil},
		{"dup too deep", []int{1}, func(st *Stack[int]) error { return st.Dup(2) }, []int{1}, ErrUnderflow},
		{"drop top", []int{1, 2, 3}, func(st *Stack[int]) error { return st.Drop(0, 1) }, []int{1, 2}, nil},
		{"drop below", []int{1, 2, 3, 4}, func(st *Stack[int]) error { return st.Drop(1, 2) }, []int{1, 4}, nil},
		{"drop too many", []int{1}, func(st *Stack[int]) error { return st.Drop(0, 2) }, []int{1}, ErrUnderflow},
		{"swap", []int{1, 2}, func(st *Stack[int]) error { return st.Rotate(2, 1) }, []int{2, 1}, nil},
		{"rot", []int{1, 2, 3}, func(st *Stack[int]) error { return st.Rotate(3, 1) }, []int{2, 3, 1}, nil},
		{"reverse rot", []int{1, 2, 3}, func(st *Stack[int]) error { return st.Rotate(3, -1) }, []int{3, 1, 2}, nil},
		{"set", []int{1, 2}, func(st *Stack[int]) error { return st.Set(2, 5) }, []int{5, 2}, nil},
		{"truncate", []int{1, 2, 3}, func(st *Stack[int]) error { st.Truncate(1); return nil }, []int{1}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			st := Of(tc.initial...)
			err := tc.op(st)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, append([]int{}, st.Elems()...))
		})
	}
}

func TestStackClone(t *testing.T) {
	st := Of(1, 2)
	cp := st.Clone()
	cp.Push(3)
	require.NoError(t, cp.Set(3, 9))
	assert.Equal(t, []int{1, 2}, st.Elems())
	assert.Equal(t, []int{9, 2, 3}, cp.Elems())

	vs, err := cp.PopN(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, vs)
	top, err := cp.Peek()
	require.NoError(t, err)
	assert.Equal(t, 9, top)
}
