// Package stack provides the random access stack used for both runtime values
// and the checker's abstract type frames.
package stack

import "errors"

// ErrUnderflow is returned when an operation needs more elements than a stack
// holds.
var ErrUnderflow = errors.New("stack underflow")

// Stack is an array backed stack whose elements are addressed by depth: depth
// 1 is the top of the stack.
type Stack[T any] struct {
	elems []T
}

// New returns a stack with room for capacity elements.
func New[T any](capacity int) *Stack[T] {
	return &Stack[T]{elems: make([]T, 0, capacity)}
}

// Of returns a stack holding elems, bottom first.
func Of[T any](elems ...T) *Stack[T] {
	return &Stack[T]{elems: append([]T(nil), elems...)}
}

// Len returns the number of elements.
func (st *Stack[T]) Len() int { return len(st.elems) }

// Push appends v on top of the stack.
func (st *Stack[T]) Push(v T) { st.elems = append(st.elems, v) }

// Pop removes and returns the top element.
func (st *Stack[T]) Pop() (v T, err error) {
	i := len(st.elems) - 1
	if i < 0 {
		return v, ErrUnderflow
	}
	v = st.elems[i]
	var zero T
	st.elems[i] = zero
	st.elems = st.elems[:i]
	return v, nil
}

// PopN removes the top n elements, returning them bottom first.
func (st *Stack[T]) PopN(n int) ([]T, error) {
	if n < 0 || n > len(st.elems) {
		return nil, ErrUnderflow
	}
	i := len(st.elems) - n
	out := append([]T(nil), st.elems[i:]...)
	st.elems = st.elems[:i]
	return out, nil
}

// Peek returns the top element.
func (st *Stack[T]) Peek() (T, error) { return st.Get(1) }

// Get returns the element at the given depth.
func (st *Stack[T]) Get(depth int) (v T, err error) {
	i := len(st.elems) - depth
	if depth < 1 || i < 0 {
		return v, ErrUnderflow
	}
	return st.elems[i], nil
}

// Set replaces the element at the given depth.
func (st *Stack[T]) Set(depth int, v T) error {
	i := len(st.elems) - depth
	if depth < 1 || i < 0 {
		return ErrUnderflow
	}
	st.elems[i] = v
	return nil
}

// Dup pushes a copy of the element at depth.
func (st *Stack[T]) Dup(depth int) error {
	v, err := st.Get(depth)
	if err == nil {
		st.Push(v)
	}
	return err
}

// Drop removes count elements, the topmost of which lies off elements below
// the top.
func (st *Stack[T]) Drop(off, count int) error {
	if off < 0 || count < 0 || off+count > len(st.elems) {
		return ErrUnderflow
	}
	end := len(st.elems) - off
	st.elems = append(st.elems[:end-count], st.elems[end:]...)
	return nil
}

// Rotate rotates the top count elements; each step moves the element at depth
// count to the top, so Rotate(2, 1) swaps and Rotate(3, 1) is forth's rot.
func (st *Stack[T]) Rotate(count, steps int) error {
	if count < 0 || count > len(st.elems) {
		return ErrUnderflow
	}
	if count == 0 {
		return nil
	}
	top := st.elems[len(st.elems)-count:]
	steps %= count
	if steps < 0 {
		steps += count
	}
	if steps == 0 {
		return nil
	}
	rotated := make([]T, 0, count)
	rotated = append(rotated, top[steps:]...)
	rotated = append(rotated, top[:steps]...)
	copy(top, rotated)
	return nil
}

// Elems returns the elements bottom first; the slice aliases the stack.
func (st *Stack[T]) Elems() []T { return st.elems }

// Clone returns an independent copy of the stack.
func (st *Stack[T]) Clone() *Stack[T] {
	return &Stack[T]{elems: append(make([]T, 0, cap(st.elems)), st.elems...)}
}

// Truncate drops elements until n remain.
func (st *Stack[T]) Truncate(n int) {
	if n < len(st.elems) {
		var zero T
		for i := n; i < len(st.elems); i++ {
			st.elems[i] = zero
		}
		st.elems = st.elems[:n]
	}
}
