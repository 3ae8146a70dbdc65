package gc

import (
	"errors"
	"fmt"
)

// List of fatal error conditions. Those are never returned, they are the
// wrapped cause of the *Error or *RootError value that the heap panics with.
var (
	ErrAlreadyBorrowed  = errors.New("already borrowed")
	ErrAlreadyExclusive = errors.New("already exclusively borrowed")
	ErrReleased         = errors.New("borrow guard used after release")
	ErrNilRef           = errors.New("nil reference")
	ErrCollected        = errors.New("cell already collected")
	ErrForeignCell      = errors.New("cell belongs to another heap")
	ErrNotTraceable     = errors.New("type may hold heap references but does not implement gc.Traceable")
	ErrFrameOrder       = errors.New("stack entry is not the top of the root chain")
)

// An Error is the panic value for a fatal violation of the heap's access
// rules on a cell: borrow conflicts, use of a collected cell, allocation of a
// type that cannot be traced, etc.
type Error struct {
	Op   string // borrow, borrow_mut, take, alloc, mark, trace
	Type string // payload type of the cell
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gc: %s %s: %s", e.Op, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// A RootError is the panic value for an inconsistency found in the root
// chain. The collection is aborted and the heap must not be used anymore.
type RootError struct {
	Err error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("gc: root discovery: %s", e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

func fatal(op string, c *header, err error) {
	typ := "<nil>"
	if c != nil {
		typ = c.desc.name
	}
	panic(&Error{Op: op, Type: typ, Err: err})
}
