package gc

import (
	"errors"
	"unsafe"

	"github.com/mcoblenz/Bronze/gc/stackmap"
)

// markRoots marks the cells directly reachable from the roots: the slots of
// the root chain, the cells pinned by handles and the cells with an
// outstanding borrow, whose payload may be in use outside of any root.
func (h *Heap) markRoots(m *Marker) {
	var head *stackmap.StackEntry
	if h.chain != nil {
		head = *h.chain
	}
	err := stackmap.Walk(head, func(p unsafe.Pointer, _ stackmap.Meta) {
		m.mark((*header)(p))
	})
	if err != nil {
		panic(&RootError{Err: err})
	}

	h.handles.Iter(func(c *header, _ int) bool {
		m.mark(c)
		return false
	})

	for c := h.head; c != nil; c = c.next {
		if c.borrow != unborrowed {
			m.mark(c)
		}
	}
}

// A Root describes a cell found in the root chain.
type Root struct {
	Entry int // depth of the stack entry in the chain
	Meta  stackmap.Meta
	Cell  unsafe.Pointer
	Type  string // payload type, empty if the cell is not in this heap
}

// Roots returns the cells currently referenced by the root chain, in walk
// order. It is meant for debugging and does not mark anything. An
// inconsistent chain is reported as an error instead of a panic.
func (h *Heap) Roots() ([]Root, error) {
	h.init()

	// depth is tracked by walking each entry on its own
	var roots []Root
	depth := 0
	for e := *h.chain; e != nil; e = e.Next {
		single := *e
		single.Next = nil
		err := stackmap.Walk(&single, func(p unsafe.Pointer, meta stackmap.Meta) {
			r := Root{Entry: depth, Meta: meta, Cell: p}
			if c := (*header)(p); h.owns(c) {
				r.Type = c.desc.name
			}
			roots = append(roots, r)
		})
		if err != nil {
			var serr *stackmap.Error
			if errors.As(err, &serr) {
				serr.Entry = depth
			}
			return roots, err
		}
		depth++
	}
	return roots, nil
}

// owns returns true if c is a live cell of h. It only compares pointers, so
// it is safe to call with a pointer that is not a cell.
func (h *Heap) owns(c *header) bool {
	for cur := h.head; cur != nil; cur = cur.next {
		if cur == c {
			return true
		}
	}
	return false
}
