package gc

import (
	"fmt"
	"unsafe"
)

// A Ref is a reference to a cell holding a T. It is a small value that can be
// freely copied; copies refer to the same cell and compare equal. The zero
// value is the nil reference. A Ref does not keep its cell alive, the cell
// must be reachable from a root at collection time.
//
// The only field of a Ref is the pointer to its cell, so the address of a Ref
// variable is a pointer to a cell pointer, suitable for an Indirect root slot.
type Ref[T any] struct {
	b *box[T]
}

var (
	_ Traceable = Ref[int]{}
	_ cellRef   = Ref[int]{}
)

// Alloc allocates a cell in h holding v and returns a reference to it. A
// collection may run before the cell is linked in the heap, in which case v
// itself is considered reachable. Alloc panics with an *Error if T may hold
// references but does not implement Traceable.
func Alloc[T any](h *Heap, v T) Ref[T] {
	return Ref[T]{b: alloc(h, v, false)}
}

func alloc[T any](h *Heap, v T, nullable bool) *box[T] {
	d := descriptorOf[T]()
	if d.err != nil {
		panic(&Error{Op: "alloc", Type: d.name, Err: d.err})
	}

	h.init()
	if h.bytes > h.threshold && !h.collecting {
		h.debugf("heap getting too full (%d > %d bytes), collection triggered", h.bytes, h.threshold)
		h.collect(func(m *Marker) { Trace(m, &v) })
	}

	b := &box[T]{
		header: header{next: h.head, desc: d, heap: h, nullable: nullable},
		value:  v,
	}
	h.head = &b.header
	h.bytes += int(d.size)
	h.cells++
	h.debugf("allocated cell %p (%s, %d bytes)", b, d.name, d.size)
	return b
}

func (r Ref[T]) cell() *header {
	if r.b == nil {
		return nil
	}
	return &r.b.header
}

// IsZero returns true if r is the nil reference.
func (r Ref[T]) IsZero() bool { return r.b == nil }

// Ptr returns the type-erased pointer to the cell, suitable for a Direct root
// slot. It returns nil for the nil reference.
func (r Ref[T]) Ptr() unsafe.Pointer { return unsafe.Pointer(r.b) }

// Heap returns the heap that owns the cell, or nil for the nil reference.
func (r Ref[T]) Heap() *Heap {
	if r.b == nil {
		return nil
	}
	return r.b.heap
}

// Borrow acquires a shared borrow of the cell's payload. It panics with an
// *Error wrapping ErrAlreadyExclusive if the cell is exclusively borrowed.
func (r Ref[T]) Borrow() *Borrow[T] { return borrowShared(r.b, "borrow") }

// BorrowMut acquires the exclusive borrow of the cell's payload. It panics
// with an *Error wrapping ErrAlreadyBorrowed if the cell is borrowed.
func (r Ref[T]) BorrowMut() *BorrowMut[T] { return borrowExclusive(r.b, "borrow_mut") }

// Get returns a copy of the payload, under a shared borrow.
func (r Ref[T]) Get() T {
	g := r.Borrow()
	defer g.Release()
	return g.Get()
}

// Set replaces the payload, under an exclusive borrow.
func (r Ref[T]) Set(v T) {
	g := r.BorrowMut()
	defer g.Release()
	g.Set(v)
}

// Read calls fn with a pointer to the payload, under a shared borrow that is
// released when fn returns or panics. The payload must not be modified
// through the pointer, nor the pointer retained after fn returns.
func (r Ref[T]) Read(fn func(*T)) {
	g := r.Borrow()
	defer g.Release()
	fn(&g.b.value)
}

// Update calls fn with a pointer to the payload, under an exclusive borrow
// that is released when fn returns or panics. The pointer must not be
// retained after fn returns.
func (r Ref[T]) Update(fn func(*T)) {
	g := r.BorrowMut()
	defer g.Release()
	fn(g.Ptr())
}

// Trace marks the cell referenced by r.
func (r Ref[T]) Trace(m *Marker) { m.mark(r.cell()) }

// Finalize does nothing, the referenced cell is finalized on its own.
func (r Ref[T]) Finalize() {}

func (r Ref[T]) String() string { return fmt.Sprintf("ref(%p)", r.b) }

// A NullableRef is a reference to a cell whose payload can be moved out
// exactly once with Take. Otherwise it behaves as a Ref.
type NullableRef[T any] struct {
	b *box[T]
}

var (
	_ Traceable = NullableRef[int]{}
	_ cellRef   = NullableRef[int]{}
)

// AllocNullable is like Alloc but allocates a nullable cell.
func AllocNullable[T any](h *Heap, v T) NullableRef[T] {
	return NullableRef[T]{b: alloc(h, v, true)}
}

func (r NullableRef[T]) cell() *header {
	if r.b == nil {
		return nil
	}
	return &r.b.header
}

// IsZero returns true if r is the nil reference.
func (r NullableRef[T]) IsZero() bool { return r.b == nil }

// Ptr returns the type-erased pointer to the cell, see Ref.Ptr.
func (r NullableRef[T]) Ptr() unsafe.Pointer { return unsafe.Pointer(r.b) }

// Heap returns the heap that owns the cell, or nil for the nil reference.
func (r NullableRef[T]) Heap() *Heap {
	if r.b == nil {
		return nil
	}
	return r.b.heap
}

// IsEmpty returns true if the payload has been taken out.
func (r NullableRef[T]) IsEmpty() bool {
	checkCell("take", r.cell())
	return r.b.empty
}

// Take moves the payload out of the cell and marks it empty. It returns the
// payload and true on the first call, the zero value and false afterwards.
// It panics with an *Error wrapping ErrAlreadyBorrowed if the cell is
// borrowed. An empty cell is never traced nor finalized.
func (r NullableRef[T]) Take() (T, bool) {
	var zero T

	checkCell("take", r.cell())
	if r.b.empty {
		return zero, false
	}
	if r.b.borrow != 0 {
		fatal("take", r.cell(), ErrAlreadyBorrowed)
	}
	v := r.b.value
	r.b.value = zero
	r.b.empty = true
	return v, true
}

// Borrow acquires a shared borrow of the payload, see Ref.Borrow. The payload
// of an empty cell is the zero value.
func (r NullableRef[T]) Borrow() *Borrow[T] { return borrowShared(r.b, "borrow") }

// BorrowMut acquires the exclusive borrow of the payload, see Ref.BorrowMut.
func (r NullableRef[T]) BorrowMut() *BorrowMut[T] { return borrowExclusive(r.b, "borrow_mut") }

// Get returns a copy of the payload, under a shared borrow.
func (r NullableRef[T]) Get() T {
	g := r.Borrow()
	defer g.Release()
	return g.Get()
}

// Read calls fn with a pointer to the payload, see Ref.Read.
func (r NullableRef[T]) Read(fn func(*T)) {
	g := r.Borrow()
	defer g.Release()
	fn(&g.b.value)
}

// Update calls fn with a pointer to the payload, see Ref.Update.
func (r NullableRef[T]) Update(fn func(*T)) {
	g := r.BorrowMut()
	defer g.Release()
	fn(g.Ptr())
}

// Trace marks the cell referenced by r.
func (r NullableRef[T]) Trace(m *Marker) { m.mark(r.cell()) }

// Finalize does nothing, the referenced cell is finalized on its own.
func (r NullableRef[T]) Finalize() {}

func (r NullableRef[T]) String() string { return fmt.Sprintf("nullable(%p)", r.b) }
