package gc_test

import (
	"testing"

	"github.com/mcoblenz/Bronze/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedBorrows(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, 1)

	g1 := r.Borrow()
	g2 := r.Borrow()
	assert.Equal(t, 1, g1.Get())
	assert.Equal(t, 1, g2.Get())
	assert.Equal(t, 1, r.Get())

	requirePanicIs(t, gc.ErrAlreadyBorrowed, func() { r.BorrowMut() })
	g1.Release()
	requirePanicIs(t, gc.ErrAlreadyBorrowed, func() { r.Set(2) })
	g2.Release()

	r.Set(2)
	assert.Equal(t, 2, r.Get())
}

func TestExclusiveBorrow(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, []int{1})

	g := r.BorrowMut()
	*g.Ptr() = append(*g.Ptr(), 2)
	assert.Equal(t, []int{1, 2}, g.Get())

	requirePanicIs(t, gc.ErrAlreadyExclusive, func() { r.Borrow() })
	requirePanicIs(t, gc.ErrAlreadyBorrowed, func() { r.BorrowMut() })

	// copies of a reference share the borrow state
	cp := r
	requirePanicIs(t, gc.ErrAlreadyExclusive, func() { cp.Get() })

	g.Release()
	g.Release()
	assert.Equal(t, []int{1, 2}, cp.Get())

	g2 := cp.BorrowMut()
	g2.Set([]int{3})
	g2.Release()
	assert.Equal(t, []int{3}, r.Get())
}

func TestReleasedGuard(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, "a")

	g := r.Borrow()
	g.Release()
	requirePanicIs(t, gc.ErrReleased, func() { g.Get() })

	gm := r.BorrowMut()
	gm.Release()
	requirePanicIs(t, gc.ErrReleased, func() { gm.Get() })
	requirePanicIs(t, gc.ErrReleased, func() { gm.Set("b") })
	assert.Equal(t, "a", r.Get())
}

func TestUpdateReleasesOnPanic(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, 1)

	assert.Panics(t, func() {
		r.Update(func(v *int) {
			*v = 2
			panic("boom")
		})
	})
	// the exclusive borrow was released
	assert.Equal(t, 2, r.Get())
}

func TestRead(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, [2]int{1, 2})

	var sum int
	r.Read(func(v *[2]int) {
		// shared borrows nest
		sum = v[0] + v[1] + r.Get()[0]
		requirePanicIs(t, gc.ErrAlreadyBorrowed, func() { r.Set([2]int{}) })
	})
	assert.Equal(t, 4, sum)
	r.Set([2]int{3, 4})

	n := gc.AllocNullable(h, "x")
	var got string
	n.Read(func(s *string) { got = *s })
	assert.Equal(t, "x", got)
}

func TestNilRef(t *testing.T) {
	var r gc.Ref[int]
	assert.True(t, r.IsZero())
	assert.Nil(t, r.Heap())
	assert.True(t, r.Ptr() == nil)
	requirePanicIs(t, gc.ErrNilRef, func() { r.Borrow() })
	requirePanicIs(t, gc.ErrNilRef, func() { r.BorrowMut() })

	var n gc.NullableRef[int]
	requirePanicIs(t, gc.ErrNilRef, func() { n.Take() })
}

func TestBorrowedCellIsRoot(t *testing.T) {
	var fin []int
	h := bigHeap()
	r := gc.Alloc(h, node{id: 1, finalized: &fin})
	child := gc.Alloc(h, node{id: 2, finalized: &fin})
	r.Update(func(n *node) { n.next = child })

	g := r.Borrow()
	h.Collect()
	assert.Empty(t, fin)
	assert.Equal(t, 2, g.Get().next.Get().id)
	g.Release()

	h.Collect()
	assert.ElementsMatch(t, []int{1, 2}, fin)
}

func TestErrorMessage(t *testing.T) {
	h := bigHeap()
	r := gc.Alloc(h, 1)
	g := r.BorrowMut()
	defer g.Release()

	var got any
	func() {
		defer func() { got = recover() }()
		r.Borrow()
	}()
	err, ok := got.(*gc.Error)
	require.True(t, ok)
	assert.Equal(t, "borrow", err.Op)
	assert.Equal(t, "int", err.Type)
	assert.EqualError(t, err, "gc: borrow int: already exclusively borrowed")
}

func TestNullable(t *testing.T) {
	var fin []int
	h := bigHeap()
	n := gc.AllocNullable(h, node{id: 5, finalized: &fin})
	assert.False(t, n.IsEmpty())
	assert.Equal(t, 5, n.Get().id)

	g := n.Borrow()
	requirePanicIs(t, gc.ErrAlreadyBorrowed, func() { n.Take() })
	g.Release()

	v, ok := n.Take()
	require.True(t, ok)
	assert.Equal(t, 5, v.id)
	assert.True(t, n.IsEmpty())

	v, ok = n.Take()
	assert.False(t, ok)
	assert.Equal(t, node{}, v)
	assert.Equal(t, node{}, n.Get())

	// an empty cell is freed without finalization
	h.Collect()
	assert.Empty(t, fin)
	assert.Equal(t, 0, h.Len())
	requirePanicIs(t, gc.ErrCollected, func() { n.IsEmpty() })
}

func TestNullableTraced(t *testing.T) {
	var fin []int
	h := bigHeap()
	child := gc.Alloc(h, node{id: 1, finalized: &fin})
	n := gc.AllocNullable(h, node{id: 2, next: child, finalized: &fin})
	hd := gc.NewHandle(n)
	defer hd.Release()

	h.Collect()
	assert.Empty(t, fin)

	// once taken, the payload no longer keeps its references alive
	v, _ := n.Take()
	h.Collect()
	assert.Equal(t, []int{1}, fin)
	assert.Equal(t, 2, v.id)
}
