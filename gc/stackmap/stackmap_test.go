package stackmap_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/mcoblenz/Bronze/gc/stackmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visit struct {
	ptr  unsafe.Pointer
	meta stackmap.Meta
}

func walk(t *testing.T, head *stackmap.StackEntry) ([]visit, error) {
	t.Helper()
	var got []visit
	err := stackmap.Walk(head, func(p unsafe.Pointer, m stackmap.Meta) {
		got = append(got, visit{p, m})
	})
	return got, err
}

func TestWalk(t *testing.T) {
	var a, b, c int
	pb := unsafe.Pointer(&b)
	var pnil unsafe.Pointer

	caller := stackmap.NewEntry(stackmap.New(stackmap.Direct))
	caller.Roots[0] = unsafe.Pointer(&c)

	callee := stackmap.NewEntry(stackmap.New(stackmap.Direct, stackmap.Indirect, stackmap.Direct, stackmap.Indirect))
	callee.Next = caller
	callee.Roots[0] = unsafe.Pointer(&a)
	callee.Roots[1] = unsafe.Pointer(&pb)
	// Roots[2] is left nil
	callee.Roots[3] = unsafe.Pointer(&pnil)

	got, err := walk(t, callee)
	require.NoError(t, err)
	want := []visit{
		{unsafe.Pointer(&a), stackmap.Direct},
		{unsafe.Pointer(&b), stackmap.Indirect},
		{unsafe.Pointer(&c), stackmap.Direct},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 2, stackmap.Depth(callee))
}

func TestWalkEmpty(t *testing.T) {
	got, err := walk(t, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, stackmap.Depth(nil))
}

func TestWalkErrors(t *testing.T) {
	var x int

	cases := []struct {
		desc  string
		fm    *stackmap.FrameMap
		roots []unsafe.Pointer
		err   error
		slot  int
	}{
		{"count mismatch", &stackmap.FrameMap{NumRoots: 2, NumMeta: 1, Meta: []stackmap.Meta{1}}, nil, stackmap.ErrCountMismatch, -1},
		{"count mismatch with nil roots", &stackmap.FrameMap{NumRoots: 1, NumMeta: 0}, nil, stackmap.ErrCountMismatch, -1},
		{"invalid meta", &stackmap.FrameMap{NumRoots: 2, NumMeta: 2, Meta: []stackmap.Meta{1, 3}}, []unsafe.Pointer{nil, unsafe.Pointer(&x)}, stackmap.ErrInvalidMeta, 1},
		{"zero meta", &stackmap.FrameMap{NumRoots: 1, NumMeta: 1, Meta: []stackmap.Meta{0}}, []unsafe.Pointer{unsafe.Pointer(&x)}, stackmap.ErrInvalidMeta, 0},
		{"short roots", stackmap.New(stackmap.Direct, stackmap.Direct), []unsafe.Pointer{nil}, stackmap.ErrShortRoots, -1},
		{"nil frame map", nil, nil, stackmap.ErrNilFrameMap, -1},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			head := &stackmap.StackEntry{Map: c.fm, Roots: c.roots}
			if c.roots == nil && c.fm != nil {
				head.Roots = make([]unsafe.Pointer, max(c.fm.NumRoots, 0))
			}
			// the erroneous entry is the second one in the chain
			top := stackmap.NewEntry(stackmap.New())
			top.Next = head

			_, err := walk(t, top)
			require.Error(t, err)
			assert.True(t, errors.Is(err, c.err), "got %v", err)

			var serr *stackmap.Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, 1, serr.Entry)
			assert.Equal(t, c.slot, serr.Slot)
		})
	}
}

func TestWalkNilSlotWithInvalidMeta(t *testing.T) {
	// a nil slot is skipped before its metadata is interpreted
	e := stackmap.NewEntry(&stackmap.FrameMap{NumRoots: 1, NumMeta: 1, Meta: []stackmap.Meta{9}})
	got, err := walk(t, e)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		desc string
		fm   *stackmap.FrameMap
		err  error
	}{
		{"empty", stackmap.New(), nil},
		{"valid", stackmap.New(stackmap.Direct, stackmap.Indirect), nil},
		{"more roots", &stackmap.FrameMap{NumRoots: 2, NumMeta: 1, Meta: []stackmap.Meta{1}}, stackmap.ErrCountMismatch},
		{"missing meta", &stackmap.FrameMap{NumRoots: 2, NumMeta: 2, Meta: []stackmap.Meta{1}}, stackmap.ErrCountMismatch},
		{"negative", &stackmap.FrameMap{NumRoots: -1, NumMeta: -1}, stackmap.ErrCountMismatch},
		{"invalid meta", &stackmap.FrameMap{NumRoots: 1, NumMeta: 1, Meta: []stackmap.Meta{4}}, stackmap.ErrInvalidMeta},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			err := c.fm.Validate()
			if c.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestMetaString(t *testing.T) {
	assert.Equal(t, "direct", stackmap.Direct.String())
	assert.Equal(t, "indirect", stackmap.Indirect.String())
	assert.Equal(t, "meta(7)", stackmap.Meta(7).String())
}
