// Package stackmap defines the shadow-stack ABI shared by the code generator
// and the collector: per-function frame maps describing the heap references
// held in a call frame, and the linked chain of stack entries that records the
// live frames of an execution context.
package stackmap

import (
	"errors"
	"fmt"
	"unsafe"
)

// Meta describes how the collector must interpret a root slot.
type Meta uint8

// List of valid root metadata values.
const (
	// Direct means the slot holds a pointer to a cell.
	Direct Meta = 1
	// Indirect means the slot holds a pointer to a pointer to a cell, e.g. the
	// address of a reference variable ("fat" root).
	Indirect Meta = 2
)

func (m Meta) String() string {
	switch m {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	default:
		return fmt.Sprintf("meta(%d)", uint8(m))
	}
}

// Valid returns true if m is a known metadata value.
func (m Meta) Valid() bool { return m == Direct || m == Indirect }

// A FrameMap is the constant map for a single function's stack frame. One of
// those is emitted for each function that holds heap references in its
// frame. NumRoots and NumMeta are stored separately because the map is
// decoded from untrusted compiler output; a valid map has both equal to
// len(Meta).
type FrameMap struct {
	NumRoots int32
	NumMeta  int32
	Meta     []Meta
}

// New returns a valid frame map with one root slot per provided metadata
// value.
func New(meta ...Meta) *FrameMap {
	return &FrameMap{
		NumRoots: int32(len(meta)),
		NumMeta:  int32(len(meta)),
		Meta:     meta,
	}
}

// Validate checks that the frame map is internally consistent: every root
// requires a metadata entry and each entry must be a known value.
func (fm *FrameMap) Validate() error {
	if fm.NumRoots < 0 || fm.NumRoots != fm.NumMeta {
		return fmt.Errorf("%w: %d roots, %d metadata", ErrCountMismatch, fm.NumRoots, fm.NumMeta)
	}
	if int(fm.NumMeta) != len(fm.Meta) {
		return fmt.Errorf("%w: %d metadata declared, %d present", ErrCountMismatch, fm.NumMeta, len(fm.Meta))
	}
	for i, m := range fm.Meta {
		if !m.Valid() {
			return fmt.Errorf("%w: slot %d: %s", ErrInvalidMeta, i, m)
		}
	}
	return nil
}

// A StackEntry is a link in the shadow stack. One of those exists for each
// live call frame that holds heap references. Roots is the in-place array of
// slots described by Map: a nil slot holds no reference.
type StackEntry struct {
	Next  *StackEntry // link to the caller's entry
	Map   *FrameMap
	Roots []unsafe.Pointer
}

// NewEntry returns a stack entry for the frame map with all root slots set to
// nil. The entry is not linked in any chain.
func NewEntry(fm *FrameMap) *StackEntry {
	n := fm.NumRoots
	if n < 0 {
		n = 0
	}
	return &StackEntry{Map: fm, Roots: make([]unsafe.Pointer, n)}
}

// List of root protocol errors.
var (
	ErrCountMismatch = errors.New("root and metadata counts differ")
	ErrInvalidMeta   = errors.New("invalid root metadata")
	ErrShortRoots    = errors.New("stack entry has fewer slots than its frame map")
	ErrNilFrameMap   = errors.New("stack entry has no frame map")
)

// An Error describes a root protocol inconsistency found while walking a
// chain. Entry is the 0-based depth of the stack entry from the head of the
// chain, Slot the root slot index or -1 if the error concerns the whole
// entry.
type Error struct {
	Entry int
	Slot  int
	Err   error
}

func (e *Error) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("stack entry %d: %s", e.Entry, e.Err)
	}
	return fmt.Sprintf("stack entry %d, root %d: %s", e.Entry, e.Slot, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Walk calls fn for each non-nil root of the chain starting at head, in
// chain order and then in slot order. Indirect roots are dereferenced once
// and fn receives the resolved cell pointer along with the slot's metadata.
// The walk stops at the first inconsistency, which is returned as an *Error;
// roots visited before the inconsistency have already been passed to fn.
func Walk(head *StackEntry, fn func(cell unsafe.Pointer, meta Meta)) error {
	depth := 0
	for e := head; e != nil; e = e.Next {
		fm := e.Map
		if fm == nil {
			return &Error{Entry: depth, Slot: -1, Err: ErrNilFrameMap}
		}
		if fm.NumRoots < 0 || fm.NumRoots != fm.NumMeta || int(fm.NumMeta) > len(fm.Meta) {
			return &Error{Entry: depth, Slot: -1,
				Err: fmt.Errorf("%w: %d roots, %d metadata", ErrCountMismatch, fm.NumRoots, fm.NumMeta)}
		}
		if int(fm.NumRoots) > len(e.Roots) {
			return &Error{Entry: depth, Slot: -1,
				Err: fmt.Errorf("%w: %d slots, %d roots", ErrShortRoots, len(e.Roots), fm.NumRoots)}
		}

		for i, root := range e.Roots[:fm.NumRoots] {
			if root == nil {
				continue
			}
			switch meta := fm.Meta[i]; meta {
			case Direct:
				fn(root, meta)
			case Indirect:
				if cell := *(*unsafe.Pointer)(root); cell != nil {
					fn(cell, meta)
				}
			default:
				return &Error{Entry: depth, Slot: i, Err: fmt.Errorf("%w: %s", ErrInvalidMeta, meta)}
			}
		}
		depth++
	}
	return nil
}

// Depth returns the number of entries in the chain starting at head.
func Depth(head *StackEntry) int {
	var n int
	for e := head; e != nil; e = e.Next {
		n++
	}
	return n
}
