package gc

// collect runs a full mark and sweep cycle. If extra is non-nil, it is called
// during the mark phase to trace values that are not yet in the heap, such
// as the value of the allocation that triggered the collection.
func (h *Heap) collect(extra func(*Marker)) {
	h.collecting = true
	defer func() {
		// marks are cleared even if root discovery failed, so that a
		// recovered panic leaves no stale mark bits behind
		h.clearMarks()
		h.collecting = false
	}()

	m := &Marker{heap: h}
	h.markRoots(m)
	if extra != nil {
		extra(m)
	}
	m.drain()
	h.lastMarked = m.marked

	dead := h.sweep()
	h.release(dead)
	h.collections++
	h.debugf("collection %d: %d cells marked, %d freed, %d bytes in use", h.collections, m.marked, len(dead), h.bytes)

	h.grow()
}

// sweep unlinks every unmarked cell from the heap and returns them in list
// order.
func (h *Heap) sweep() []*header {
	var dead []*header
	link := &h.head
	for c := *link; c != nil; c = *link {
		if c.marked {
			link = &c.next
			continue
		}
		*link = c.next
		c.next = nil
		dead = append(dead, c)
	}
	return dead
}

// release finalizes each of the unlinked cells and marks them as freed. All
// cells are unlinked before any finalizer runs, and none is marked as freed
// until all finalizers ran, so a finalizer may still read another dead cell.
func (h *Heap) release(dead []*header) {
	for _, c := range dead {
		h.bytes -= int(c.desc.size)
		h.cells--
		h.freed++
		h.freedBytes += int(c.desc.size)
	}
	for _, c := range dead {
		c.finalize()
	}
	for _, c := range dead {
		c.freed = true
		h.debugf("freed cell %p (%s)", c, c.desc.name)
	}
}

func (h *Heap) clearMarks() {
	for c := h.head; c != nil; c = c.next {
		c.marked = false
	}
}

// grow raises the threshold if the heap is still too full after a
// collection, so that the ratio of bytes in use to threshold is at most the
// target ratio.
func (h *Heap) grow() {
	if float64(h.bytes) <= float64(h.threshold)*h.ratio {
		return
	}
	next := int(float64(h.bytes) / h.ratio)
	if float64(next)*h.ratio < float64(h.bytes) {
		next++
	}
	h.debugf("threshold raised from %d to %d bytes", h.threshold, next)
	h.threshold = next
}
