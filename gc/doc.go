// Package gc implements a tracing garbage-collected heap with dynamically
// checked references.
//
// A Heap owns a list of cells, each made of a header followed by a payload of
// any type. Alloc and AllocNullable link a new cell in the heap and return a
// reference to it. References are small copyable values that do not keep
// their cell alive by themselves: a cell survives a collection only if it is
// reachable from a root, that is from a slot of a live stack entry (see
// package stackmap and Heap.Enter), from a Handle, or from a cell with an
// outstanding borrow.
//
// Access to a payload goes through borrow guards. Any number of shared
// borrows (Ref.Borrow) may coexist, or a single exclusive borrow
// (Ref.BorrowMut). Violating that rule is a fatal error that panics with an
// *Error. Guards must be released on every exit path, typically with defer:
//
//	g := r.BorrowMut()
//	defer g.Release()
//	g.Ptr().count++
//
// Payload types that may hold references to other cells must implement
// Traceable, forwarding Trace and Finalize to their fields. Types made only
// of booleans, numbers and strings (including arrays, structs, pointers,
// slices and maps of those) need no implementation.
//
// Collection is a stop-the-world mark and sweep cycle that runs
// synchronously inside an allocation once the allocated bytes exceed the
// heap's threshold, or when Heap.Collect is called. A Heap and everything
// allocated in it must be used by a single goroutine.
package gc
