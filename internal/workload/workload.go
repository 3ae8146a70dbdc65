// Package workload runs allocation workloads described in YAML against a
// gc.Heap, to observe the behaviour of the collector.
//
// A workload file looks like this:
//
//	threshold: 1024     # optional, initial collection threshold in bytes
//	ratio: 0.5          # optional, target ratio of bytes to threshold
//	steps:
//	  - alloc: {count: 100, kind: pair, keep: true}
//	  - alloc: {count: 10, kind: cycle}
//	  - drop: {count: 50} # unroot the 50 most recently kept structures
//	  - collect: true
package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mcoblenz/Bronze/gc"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// List of kinds of structures that can be allocated.
const (
	Scalar = "scalar" // a single cell holding an int
	Pair   = "pair"   // a cell referencing a scalar cell
	Cycle  = "cycle"  // two cells referencing each other
)

// A Workload is a sequence of steps executed on a heap.
type Workload struct {
	Threshold int     `yaml:"threshold"`
	Ratio     float64 `yaml:"ratio"`
	Steps     []Step  `yaml:"steps"`
}

// A Step is a single operation of a workload, exactly one of its fields must
// be set.
type Step struct {
	Alloc   *Alloc `yaml:"alloc"`
	Drop    *Drop  `yaml:"drop"`
	Collect bool   `yaml:"collect"`
}

// Alloc allocates Count structures of the specified Kind. If Keep is true,
// each structure is rooted until dropped.
type Alloc struct {
	Count int    `yaml:"count"`
	Kind  string `yaml:"kind"`
	Keep  bool   `yaml:"keep"`
}

// Drop unroots the Count most recently kept structures, or all of them if
// Count is 0 or exceeds the number of kept structures.
type Drop struct {
	Count int `yaml:"count"`
}

// Op returns the name of the operation of the step.
func (s Step) Op() string {
	switch {
	case s.Alloc != nil:
		return "alloc"
	case s.Drop != nil:
		return "drop"
	case s.Collect:
		return "collect"
	default:
		return ""
	}
}

// Load decodes a workload from r and validates it.
func Load(r io.Reader) (*Workload, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var w Workload
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty workload")
		}
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadFile loads the workload in the file at path.
func LoadFile(path string) (*Workload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Validate returns an error if the workload is invalid.
func (w *Workload) Validate() error {
	if err := w.Config().Validate(); err != nil {
		return err
	}
	for i, s := range w.Steps {
		var n int
		if s.Alloc != nil {
			n++
		}
		if s.Drop != nil {
			n++
		}
		if s.Collect {
			n++
		}
		if n != 1 {
			return fmt.Errorf("step %d: want exactly one operation, got %d", i, n)
		}

		switch {
		case s.Alloc != nil:
			if s.Alloc.Count <= 0 {
				return fmt.Errorf("step %d: invalid alloc count: %d", i, s.Alloc.Count)
			}
			switch s.Alloc.Kind {
			case Scalar, Pair, Cycle:
			default:
				return fmt.Errorf("step %d: unknown kind: %q", i, s.Alloc.Kind)
			}
		case s.Drop != nil:
			if s.Drop.Count < 0 {
				return fmt.Errorf("step %d: invalid drop count: %d", i, s.Drop.Count)
			}
		}
	}
	return nil
}

// Config returns the heap configuration of the workload.
func (w *Workload) Config() gc.Config {
	return gc.Config{InitialThreshold: w.Threshold, TargetRatio: w.Ratio}
}

// A Result is the state of the heap after a step.
type Result struct {
	Step        int
	Op          string
	Cells       int
	Bytes       int
	Threshold   int
	Collections int
}

func (r Result) String() string {
	return fmt.Sprintf("%d: %s: cells=%d bytes=%d threshold=%d collections=%d",
		r.Step, r.Op, r.Cells, r.Bytes, r.Threshold, r.Collections)
}

type object struct {
	gc.NopFinalize
	value int
	link  gc.Ref[object]
}

func (o *object) Trace(m *gc.Marker) { o.link.Trace(m) }

// Run executes the steps of the workload on h and returns the result of
// each step. The structures still kept at the end are unrooted before Run
// returns, but they are not collected. The context is checked between
// steps.
func Run(ctx context.Context, h *gc.Heap, w *Workload) ([]Result, error) {
	var kept []*gc.Handle[gc.Ref[object]]
	defer func() {
		for _, hd := range kept {
			hd.Release()
		}
	}()

	results := make([]Result, 0, len(w.Steps))
	for i, s := range w.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		switch {
		case s.Alloc != nil:
			for j := 0; j < s.Alloc.Count; j++ {
				r := allocKind(h, s.Alloc.Kind, j)
				if s.Alloc.Keep {
					kept = append(kept, gc.NewHandle(r))
				}
			}

		case s.Drop != nil:
			n := s.Drop.Count
			if n == 0 || n > len(kept) {
				n = len(kept)
			}
			for _, hd := range kept[len(kept)-n:] {
				hd.Release()
			}
			kept = slices.Delete(kept, len(kept)-n, len(kept))

		case s.Collect:
			h.Collect()
		}

		st := h.Stats()
		results = append(results, Result{
			Step:        i,
			Op:          s.Op(),
			Cells:       st.Cells,
			Bytes:       st.Bytes,
			Threshold:   st.Threshold,
			Collections: st.Collections,
		})
	}
	return results, nil
}

func allocKind(h *gc.Heap, kind string, i int) gc.Ref[object] {
	switch kind {
	case Scalar:
		return gc.Alloc(h, object{value: i})

	case Pair:
		s := gc.Alloc(h, object{value: i})
		return gc.Alloc(h, object{value: i, link: s})

	case Cycle:
		a := gc.Alloc(h, object{value: i})
		b := gc.Alloc(h, object{value: i, link: a})
		a.Update(func(o *object) { o.link = b })
		return a

	default:
		panic(fmt.Sprintf("unknown kind: %q", kind))
	}
}
