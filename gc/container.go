package gc

import "github.com/dolthub/swiss"

// An Option holds an optional value. It traces and finalizes the value only
// if it is present.
type Option[T any] struct {
	v  T
	ok bool
}

// Some returns an Option holding v.
func Some[T any](v T) Option[T] { return Option[T]{v: v, ok: true} }

// None returns an empty Option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and true if present, the zero value and false
// otherwise.
func (o Option[T]) Get() (T, bool) { return o.v, o.ok }

// IsSome returns true if the value is present.
func (o Option[T]) IsSome() bool { return o.ok }

func (o *Option[T]) Trace(m *Marker) {
	if o.ok {
		Trace(m, &o.v)
	}
}

func (o *Option[T]) Finalize() {
	if o.ok {
		Finalize(&o.v)
	}
}

// A Slice is a slice whose elements are traced and finalized.
type Slice[T any] []T

func (s Slice[T]) Trace(m *Marker) {
	for i := range s {
		Trace(m, &s[i])
	}
}

func (s Slice[T]) Finalize() {
	for i := range s {
		Finalize(&s[i])
	}
}

// A Map is a hash map whose keys and values are traced and finalized. The
// zero value is an empty map ready to use.
type Map[K comparable, V any] struct {
	m *swiss.Map[K, V]
}

// NewMap returns a map with initial capacity for at least size entries.
func NewMap[K comparable, V any](size int) Map[K, V] {
	return Map[K, V]{m: swiss.NewMap[K, V](uint32(size))}
}

func (m *Map[K, V]) lazyInit() {
	if m.m == nil {
		m.m = swiss.NewMap[K, V](8)
	}
}

// Get returns the value for key k and true if it exists.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if m.m == nil {
		var zero V
		return zero, false
	}
	return m.m.Get(k)
}

// Put sets the value for key k.
func (m *Map[K, V]) Put(k K, v V) {
	m.lazyInit()
	m.m.Put(k, v)
}

// Delete removes the entry for key k and returns true if it existed.
func (m *Map[K, V]) Delete(k K) bool {
	if m.m == nil {
		return false
	}
	return m.m.Delete(k)
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Count()
}

// Iter calls fn for each entry in unspecified order, until fn returns false.
func (m *Map[K, V]) Iter(fn func(K, V) bool) {
	if m.m == nil {
		return
	}
	m.m.Iter(func(k K, v V) bool { return !fn(k, v) })
}

func (m *Map[K, V]) Trace(mk *Marker) {
	m.Iter(func(k K, v V) bool {
		Trace(mk, &k)
		Trace(mk, &v)
		return true
	})
}

func (m *Map[K, V]) Finalize() {
	m.Iter(func(k K, v V) bool {
		Finalize(&k)
		Finalize(&v)
		return true
	})
}

// A Set is a hash set whose elements are traced and finalized. The zero
// value is an empty set ready to use.
type Set[T comparable] struct {
	m *swiss.Map[T, struct{}]
}

// NewSet returns a set with initial capacity for at least size elements.
func NewSet[T comparable](size int) Set[T] {
	return Set[T]{m: swiss.NewMap[T, struct{}](uint32(size))}
}

// Add adds v to the set.
func (s *Set[T]) Add(v T) {
	if s.m == nil {
		s.m = swiss.NewMap[T, struct{}](8)
	}
	s.m.Put(v, struct{}{})
}

// Has returns true if v is in the set.
func (s *Set[T]) Has(v T) bool {
	return s.m != nil && s.m.Has(v)
}

// Delete removes v from the set and returns true if it was present.
func (s *Set[T]) Delete(v T) bool {
	if s.m == nil {
		return false
	}
	return s.m.Delete(v)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Count()
}

// Iter calls fn for each element in unspecified order, until fn returns
// false.
func (s *Set[T]) Iter(fn func(T) bool) {
	if s.m == nil {
		return
	}
	s.m.Iter(func(v T, _ struct{}) bool { return !fn(v) })
}

func (s *Set[T]) Trace(m *Marker) {
	s.Iter(func(v T) bool {
		Trace(m, &v)
		return true
	})
}

func (s *Set[T]) Finalize() {
	s.Iter(func(v T) bool {
		Finalize(&v)
		return true
	})
}
