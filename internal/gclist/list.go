// Package gclist implements linked data structures whose nodes are cells of a
// gc.Heap. The structures are rooted by handles, so they survive collections
// until released.
package gclist

import (
	"errors"
	"fmt"

	"github.com/mcoblenz/Bronze/gc"
)

// A Node is a node of a List.
type Node[T any] struct {
	Value T
	prev  gc.Ref[Node[T]]
	next  gc.Ref[Node[T]]
}

func (n *Node[T]) Trace(m *gc.Marker) {
	gc.Trace(m, &n.Value)
	n.prev.Trace(m)
	n.next.Trace(m)
}

func (n *Node[T]) Finalize() { gc.Finalize(&n.Value) }

// A List is a doubly linked list of values allocated in a heap. New values
// are pushed at the head.
type List[T any] struct {
	heap *gc.Heap
	head *gc.Handle[gc.Ref[Node[T]]]
}

// NewList returns an empty list allocating its nodes in h.
func NewList[T any](h *gc.Heap) *List[T] {
	return &List[T]{heap: h, head: gc.NewHandle(gc.Ref[Node[T]]{})}
}

// Push adds v at the head of the list.
func (l *List[T]) Push(v T) {
	old := l.head.Ref()
	n := gc.Alloc(l.heap, Node[T]{Value: v, next: old})
	if !old.IsZero() {
		old.Update(func(o *Node[T]) { o.prev = n })
	}
	l.head.Set(n)
}

// Len returns the number of values in the list.
func (l *List[T]) Len() int {
	var n int
	for r := l.head.Ref(); !r.IsZero(); r = r.Get().next {
		n++
	}
	return n
}

// Values returns the values of the list, from head to tail.
func (l *List[T]) Values() []T {
	var vals []T
	for r := l.head.Ref(); !r.IsZero(); {
		n := r.Get()
		vals = append(vals, n.Value)
		r = n.next
	}
	return vals
}

// CheckConsistency returns an error if the links of the list are not
// symmetric.
func (l *List[T]) CheckConsistency() error {
	head := l.head.Ref()
	if head.IsZero() {
		return nil
	}
	if !head.Get().prev.IsZero() {
		return errors.New("head has a previous node")
	}

	var i int
	for r := head; !r.IsZero(); i++ {
		next := r.Get().next
		if !next.IsZero() && next.Get().prev != r {
			return fmt.Errorf("node %d: next node does not link back", i)
		}
		r = next
	}
	return nil
}

// Release unroots the list, its nodes are freed by the next collection.
func (l *List[T]) Release() { l.head.Release() }
