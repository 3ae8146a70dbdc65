package gc

import "unsafe"

// A header is the bookkeeping part of a cell. It must be the first field of
// box so that a type-erased pointer to a cell is a valid pointer to its
// header, which is how the collector sees cells found in the root chain.
type header struct {
	next *header     // next (older) cell in the heap's list
	desc *descriptor // type-erased trace and finalize of the payload
	heap *Heap       // owning heap

	// borrow is 0 when unborrowed, > 0 for that many shared borrows and < 0
	// for an exclusive borrow.
	borrow int

	marked   bool
	nullable bool
	empty    bool // nullable payload was taken
	freed    bool // swept or torn down, the payload must not be accessed
}

// A box is a cell: a header immediately followed by its payload.
type box[T any] struct {
	header
	value T
}

func boxOf[T any](c *header) *box[T] {
	return (*box[T])(unsafe.Pointer(c))
}

func (c *header) live() bool {
	return !c.empty
}

// finalize runs the finalizer of the payload, unless it was taken out.
func (c *header) finalize() {
	if c.live() {
		c.desc.finalize(c)
	}
}

// checkCell fails if c cannot be accessed for op.
func checkCell(op string, c *header) {
	if c == nil {
		fatal(op, nil, ErrNilRef)
	}
	if c.freed {
		fatal(op, c, ErrCollected)
	}
}
