package gc

import (
	"fmt"
	"io"

	"github.com/dolthub/swiss"
	"github.com/mcoblenz/Bronze/gc/stackmap"
)

// A Heap is the garbage-collected heap of an execution context. The zero
// value is ready to use, it is initialized on first use. A Heap must not be
// copied after first use, and must only be used by a single goroutine.
type Heap struct {
	// Config is read once, when the heap is initialized.
	Config

	// Debug, if non-nil, receives a line for each allocation, collection and
	// freed cell.
	Debug io.Writer

	initialized bool
	collecting  bool
	ratio       float64

	bytes     int
	threshold int
	cells     int
	head      *header // most recently allocated cell

	chain    **stackmap.StackEntry // head of the root chain
	ownChain *stackmap.StackEntry
	handles  *swiss.Map[*header, int] // multiset of cells pinned by handles

	collections int
	lastMarked  int
	freed       int
	freedBytes  int
}

func (h *Heap) init() {
	if h.initialized {
		return
	}
	h.initialized = true

	cfg := h.Config.withDefaults()
	h.threshold = cfg.InitialThreshold
	h.ratio = cfg.TargetRatio
	if h.chain == nil {
		h.chain = &h.ownChain
	}
	h.handles = swiss.NewMap[*header, int](8)
}

func (h *Heap) debugf(format string, args ...any) {
	if h.Debug != nil {
		fmt.Fprintf(h.Debug, format+"\n", args...)
	}
}

// Len returns the number of live cells in the heap.
func (h *Heap) Len() int {
	var n int
	for c := h.head; c != nil; c = c.next {
		n++
	}
	return n
}

// Collect runs a full collection cycle. It does nothing if called while a
// collection is in progress, e.g. from a finalizer.
func (h *Heap) Collect() {
	h.init()
	if h.collecting {
		return
	}
	h.debugf("forced collection")
	h.collect(nil)
}

// Stats reports the state of a heap.
type Stats struct {
	Cells       int // live cells
	Bytes       int // bytes allocated to live cells
	Threshold   int // bytes above which an allocation triggers a collection
	Handles     int // cells pinned by handles
	Collections int // completed collection cycles
	Marked      int // cells marked by the last collection
	Freed       int // cells freed by all collections
	FreedBytes  int // bytes freed by all collections
}

// Stats returns the current statistics of the heap.
func (h *Heap) Stats() Stats {
	h.init()
	return Stats{
		Cells:       h.cells,
		Bytes:       h.bytes,
		Threshold:   h.threshold,
		Handles:     h.handles.Count(),
		Collections: h.collections,
		Marked:      h.lastMarked,
		Freed:       h.freed,
		FreedBytes:  h.freedBytes,
	}
}

// Close tears down the heap: every remaining cell is finalized and
// released, regardless of reachability. Cells allocated by finalizers while
// closing are released too, so finalizers must eventually stop allocating.
// The heap is reset to its zero state (keeping its Config, Debug and root
// chain) and can be used again.
func (h *Heap) Close() {
	if !h.initialized || h.collecting {
		return
	}

	h.collecting = true
	var n int
	for h.head != nil {
		// finalizers may allocate, those cells are released in the next round
		var dead []*header
		for c := h.head; c != nil; {
			next := c.next
			c.next = nil
			dead = append(dead, c)
			c = next
		}
		h.head = nil
		h.release(dead)
		n += len(dead)
	}
	h.debugf("heap closed, %d cells released", n)

	chain := h.chain
	if chain == &h.ownChain {
		chain = nil
	}
	*h = Heap{Config: h.Config, Debug: h.Debug, chain: chain}
}
