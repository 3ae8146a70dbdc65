package gc

import "github.com/mcoblenz/Bronze/gc/stackmap"

// SetRootChain makes the heap discover its stack roots from the chain whose
// head is stored at *head, typically a variable maintained by generated
// code. By default a heap uses its own chain, maintained by Enter and Leave.
// It must be called before the heap is used.
func (h *Heap) SetRootChain(head **stackmap.StackEntry) {
	if head == nil {
		head = &h.ownChain
	}
	h.chain = head
}

// Enter pushes a new stack entry for the frame map on the heap's root chain
// and returns it. The caller stores references in its Roots slots, and must
// call Leave with the same entry when the frame exits, typically with defer.
// The frame map is validated only when roots are discovered.
func (h *Heap) Enter(fm *stackmap.FrameMap) *stackmap.StackEntry {
	h.init()
	e := stackmap.NewEntry(fm)
	e.Next = *h.chain
	*h.chain = e
	return e
}

// Leave pops e from the heap's root chain. It panics with a *RootError
// wrapping ErrFrameOrder if e is not the head of the chain.
func (h *Heap) Leave(e *stackmap.StackEntry) {
	h.init()
	if e == nil || *h.chain != e {
		panic(&RootError{Err: ErrFrameOrder})
	}
	*h.chain = e.Next
	e.Next = nil
}

// Depth returns the number of entries in the heap's root chain.
func (h *Heap) Depth() int {
	h.init()
	return stackmap.Depth(*h.chain)
}
