package gc

// The borrow counter encoding follows the one of a single-writer,
// multi-reader lock: 0 is unborrowed, positive is the number of shared
// borrows and -1 is the exclusive borrow.
const (
	unborrowed = 0
	exclusive  = unborrowed - 1
)

// A Borrow is a shared borrow of a cell's payload. It must be released,
// typically with defer, on every exit path of the borrowing scope.
type Borrow[T any] struct {
	b *box[T]
}

func borrowShared[T any](b *box[T], op string) *Borrow[T] {
	var c *header
	if b != nil {
		c = &b.header
	}
	checkCell(op, c)

	// incrementing results in a non-positive value if the cell is
	// exclusively borrowed or if the number of shared borrows overflows.
	n := b.borrow + 1
	if n <= unborrowed {
		fatal(op, c, ErrAlreadyExclusive)
	}
	b.borrow = n
	return &Borrow[T]{b: b}
}

// Get returns a copy of the borrowed payload.
func (g *Borrow[T]) Get() T {
	if g.b == nil {
		panic(&Error{Op: "borrow", Type: descriptorOf[T]().name, Err: ErrReleased})
	}
	return g.b.value
}

// Release releases the borrow. It is a no-op if already released.
func (g *Borrow[T]) Release() {
	if g.b == nil {
		return
	}
	g.b.borrow--
	g.b = nil
}

// A BorrowMut is the exclusive borrow of a cell's payload. It must be
// released, typically with defer, on every exit path of the borrowing scope.
type BorrowMut[T any] struct {
	b *box[T]
}

func borrowExclusive[T any](b *box[T], op string) *BorrowMut[T] {
	var c *header
	if b != nil {
		c = &b.header
	}
	checkCell(op, c)

	if b.borrow != unborrowed {
		fatal(op, c, ErrAlreadyBorrowed)
	}
	b.borrow = exclusive
	return &BorrowMut[T]{b: b}
}

// Get returns a copy of the borrowed payload.
func (g *BorrowMut[T]) Get() T {
	return *g.Ptr()
}

// Set replaces the borrowed payload.
func (g *BorrowMut[T]) Set(v T) {
	*g.Ptr() = v
}

// Ptr returns a pointer to the borrowed payload. It must not be used after
// the guard is released.
func (g *BorrowMut[T]) Ptr() *T {
	if g.b == nil {
		panic(&Error{Op: "borrow_mut", Type: descriptorOf[T]().name, Err: ErrReleased})
	}
	return &g.b.value
}

// Release releases the borrow. It is a no-op if already released.
func (g *BorrowMut[T]) Release() {
	if g.b == nil {
		return
	}
	g.b.borrow++
	g.b = nil
}
