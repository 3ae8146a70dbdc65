package gc

// A Handle is an explicit root: the cell it refers to survives collections
// until the handle is released, regardless of the root chain. Handles are
// meant for references held outside of any described frame, e.g. by a
// long-lived Go value. Handles of the same cell are counted.
type Handle[R interface {
	comparable
	cellRef
}] struct {
	ref  R
	heap *Heap
}

// NewHandle pins the cell referenced by r. The nil reference gives a handle
// that pins nothing.
func NewHandle[R interface {
	comparable
	cellRef
}](r R) *Handle[R] {
	hd := &Handle[R]{}
	hd.Set(r)
	return hd
}

// Ref returns the reference held by the handle, or the nil reference if it
// was released.
func (hd *Handle[R]) Ref() R { return hd.ref }

// Set replaces the reference held by the handle, unpinning the previous cell
// and pinning the new one.
func (hd *Handle[R]) Set(r R) {
	c := r.cell()
	if c != nil {
		checkCell("handle", c)
		c.heap.pin(c)
	}
	hd.Release()
	hd.ref = r
	if c != nil {
		hd.heap = c.heap
	}
}

// Release unpins the cell. It is a no-op if already released.
func (hd *Handle[R]) Release() {
	var zero R
	if hd.heap != nil {
		hd.heap.unpin(hd.ref.cell())
	}
	hd.ref = zero
	hd.heap = nil
}

func (h *Heap) pin(c *header) {
	h.init()
	n, _ := h.handles.Get(c)
	h.handles.Put(c, n+1)
}

func (h *Heap) unpin(c *header) {
	if !h.initialized {
		return
	}
	n, ok := h.handles.Get(c)
	switch {
	case !ok:
	case n <= 1:
		h.handles.Delete(c)
	default:
		h.handles.Put(c, n-1)
	}
}
