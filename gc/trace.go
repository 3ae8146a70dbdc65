package gc

// Traceable is the contract every payload type that may hold references to
// cells must satisfy. It is typically implemented on the pointer receiver.
//
// Trace must call Trace (or the Trace method of a reference) on every
// reference the value directly owns, usually by delegating to each field.
// Finalize is called exactly once, immediately before the cell holding the
// value is released. It must not borrow cells exclusively that may still be
// borrowed elsewhere, and it cannot prevent the cell from being released.
type Traceable interface {
	Trace(*Marker)
	Finalize()
}

// NopFinalize can be embedded in a Traceable type that needs no
// finalization.
type NopFinalize struct{}

// Finalize does nothing.
func (NopFinalize) Finalize() {}

// A Marker propagates reachability during the mark phase of a collection. It
// is only valid for the duration of the Trace call that receives it.
type Marker struct {
	heap   *Heap
	stack  []*header // marked cells waiting to be traced
	marked int
}

// mark sets the mark bit of c and schedules it for tracing, unless it is
// already marked.
func (m *Marker) mark(c *header) {
	if c == nil || c.marked {
		return
	}
	if c.freed {
		fatal("mark", c, ErrCollected)
	}
	if c.heap != m.heap {
		fatal("mark", c, ErrForeignCell)
	}
	c.marked = true
	m.marked++
	m.stack = append(m.stack, c)
}

// drain traces marked cells until no cell is left to trace. Tracing uses an
// explicit stack so that deep or cyclic graphs do not recurse.
func (m *Marker) drain() {
	for n := len(m.stack); n > 0; n = len(m.stack) {
		c := m.stack[n-1]
		m.stack[n-1] = nil
		m.stack = m.stack[:n-1]
		if c.live() {
			c.desc.trace(c, m)
		}
	}
}

// Trace traces the value pointed to by v: it calls its Trace method if it is
// Traceable, otherwise v must be of a type that cannot hold references.
//
// If T is an interface type, the dynamic value is traced.
func Trace[T any](m *Marker, v *T) {
	if t, ok := any(v).(Traceable); ok {
		t.Trace(m)
		return
	}
	if isBasic(v) {
		return
	}
	d := descriptorOf[T]()
	if d.err != nil {
		panic(&Error{Op: "trace", Type: d.name, Err: d.err})
	}
	if d.iface {
		if t, ok := any(*v).(Traceable); ok {
			t.Trace(m)
		}
	}
}

// Finalize finalizes the value pointed to by v if it is Traceable, or if it
// is an interface holding a Traceable value. Composite types call it on each
// of their fields from their own Finalize.
func Finalize[T any](v *T) {
	if t, ok := any(v).(Traceable); ok {
		t.Finalize()
		return
	}
	if isBasic(v) || !descriptorOf[T]().iface {
		return
	}
	if t, ok := any(*v).(Traceable); ok {
		t.Finalize()
	}
}

// isBasic returns true if v points to a value of a predeclared leaf type, for
// which the descriptor lookup can be skipped.
func isBasic(v any) bool {
	switch v.(type) {
	case *bool, *string, *int, *int8, *int16, *int32, *int64,
		*uint, *uint8, *uint16, *uint32, *uint64, *uintptr,
		*float32, *float64, *complex64, *complex128:
		return true
	}
	return false
}
