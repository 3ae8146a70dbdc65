package gc

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/dolthub/swiss"
)

// A descriptor is the type-erased view of a payload type: it is attached to
// each cell at allocation time so that the collector, which only sees
// headers, can dispatch to the right trace and finalize implementations.
type descriptor struct {
	name     string
	size     uintptr // size of the whole cell
	leaf     bool    // payload holds no reference
	iface    bool    // payload is an interface, dispatch on its dynamic value
	err      error   // non-nil if the type cannot be allocated
	trace    func(*header, *Marker)
	finalize func(*header)
}

// descriptors are shared by all heaps, they depend only on the payload type.
var descriptors = struct {
	sync.RWMutex
	m *swiss.Map[reflect.Type, *descriptor]
}{m: swiss.NewMap[reflect.Type, *descriptor](32)}

var (
	traceableType = reflect.TypeOf((*Traceable)(nil)).Elem()
	cellRefType   = reflect.TypeOf((*cellRef)(nil)).Elem()
)

// cellRef is implemented by the reference types.
type cellRef interface {
	cell() *header
}

func descriptorOf[T any]() *descriptor {
	rt := reflect.TypeOf((*T)(nil)).Elem()

	descriptors.RLock()
	d, ok := descriptors.m.Get(rt)
	descriptors.RUnlock()
	if ok {
		return d
	}

	descriptors.Lock()
	defer descriptors.Unlock()
	if d, ok := descriptors.m.Get(rt); ok {
		return d
	}
	d = newDescriptor[T](rt)
	descriptors.m.Put(rt, d)
	return d
}

func newDescriptor[T any](rt reflect.Type) *descriptor {
	d := &descriptor{
		name: rt.String(),
		size: unsafe.Sizeof(box[T]{}),
	}

	switch {
	case reflect.PointerTo(rt).Implements(traceableType):
		d.trace = func(c *header, m *Marker) {
			any(&boxOf[T](c).value).(Traceable).Trace(m)
		}
		d.finalize = func(c *header) {
			any(&boxOf[T](c).value).(Traceable).Finalize()
		}

	case rt.Kind() == reflect.Interface && rt.Implements(traceableType):
		// a nil interface holds nothing
		d.iface = true
		d.trace = func(c *header, m *Marker) {
			if t, ok := any(boxOf[T](c).value).(Traceable); ok {
				t.Trace(m)
			}
		}
		d.finalize = func(c *header) {
			if t, ok := any(boxOf[T](c).value).(Traceable); ok {
				t.Finalize()
			}
		}

	case isLeaf(rt, make(map[reflect.Type]bool)):
		d.leaf = true
		d.trace = func(*header, *Marker) {}
		d.finalize = func(*header) {}

	default:
		d.err = ErrNotTraceable
	}
	return d
}

// isLeaf returns true if values of type t cannot hold a reference to a cell.
func isLeaf(t reflect.Type, seen map[reflect.Type]bool) bool {
	if t.Implements(cellRefType) || reflect.PointerTo(t).Implements(cellRefType) {
		return false
	}
	if seen[t] {
		// recursive type, decided by the first visit
		return true
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true

	case reflect.Array, reflect.Pointer, reflect.Slice, reflect.Chan:
		return isLeaf(t.Elem(), seen)

	case reflect.Map:
		return isLeaf(t.Key(), seen) && isLeaf(t.Elem(), seen)

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isLeaf(t.Field(i).Type, seen) {
				return false
			}
		}
		return true

	default:
		// interfaces and funcs may hide references, unsafe pointers too
		return false
	}
}
