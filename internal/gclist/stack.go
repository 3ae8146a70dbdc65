package gclist

import "github.com/mcoblenz/Bronze/gc"

type stackNode[T any] struct {
	value T
	next  gc.NullableRef[stackNode[T]]
}

func (n *stackNode[T]) Trace(m *gc.Marker) {
	gc.Trace(m, &n.value)
	n.next.Trace(m)
}

func (n *stackNode[T]) Finalize() { gc.Finalize(&n.value) }

// A Stack is a LIFO stack of values allocated in a heap. Each node is a
// nullable cell whose value is moved out when popped.
type Stack[T any] struct {
	heap *gc.Heap
	top  *gc.Handle[gc.NullableRef[stackNode[T]]]
}

// NewStack returns an empty stack allocating its nodes in h.
func NewStack[T any](h *gc.Heap) *Stack[T] {
	return &Stack[T]{heap: h, top: gc.NewHandle(gc.NullableRef[stackNode[T]]{})}
}

// Push pushes v on the stack.
func (s *Stack[T]) Push(v T) {
	n := gc.AllocNullable(s.heap, stackNode[T]{value: v, next: s.top.Ref()})
	s.top.Set(n)
}

// Pop removes the value at the top of the stack and returns it and true, or
// the zero value and false if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T

	top := s.top.Ref()
	if top.IsZero() {
		return zero, false
	}
	n, ok := top.Take()
	if !ok {
		return zero, false
	}
	s.top.Set(n.next)
	return n.value, true
}

// Release unroots the stack, its nodes are freed by the next collection.
func (s *Stack[T]) Release() { s.top.Release() }
