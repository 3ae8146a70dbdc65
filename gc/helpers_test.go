package gc_test

import (
	"errors"
	"testing"

	"github.com/mcoblenz/Bronze/gc"
	"github.com/stretchr/testify/require"
)

// node is a linked list node that records its id in finalized when it is
// finalized.
type node struct {
	next      gc.Ref[node]
	id        int
	finalized *[]int
}

func (n *node) Trace(m *gc.Marker) { n.next.Trace(m) }

func (n *node) Finalize() {
	if n.finalized != nil {
		*n.finalized = append(*n.finalized, n.id)
	}
}

// bigHeap returns a heap that never collects on its own in a test.
func bigHeap() *gc.Heap {
	return &gc.Heap{Config: gc.Config{InitialThreshold: 1 << 30}}
}

// requirePanicIs calls fn and requires that it panics with an error that
// matches target.
func requirePanicIs(t *testing.T, target error, fn func()) {
	t.Helper()

	var got any
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	require.NotNil(t, got, "expected a panic")
	err, ok := got.(error)
	require.True(t, ok, "panic value is not an error: %v", got)
	require.True(t, errors.Is(err, target), "got %v, want %v", err, target)
}
