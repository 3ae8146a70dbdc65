package stackmap_test

import (
	"testing"

	"github.com/mcoblenz/Bronze/gc/stackmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsm(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string // error "contains" this err string, no error if empty
	}{
		{"empty", ``, "expected stackmap section"},
		{"not stackmap", `frame: main`, "expected stackmap section, found frame:"},
		{"stackmap with argument", `stackmap: foo`, "invalid stackmap"},
		{"stackmap only", `stackmap:`, ""},

		{"minimally valid", `
			stackmap:
				frame: main
			`, ""},

		{"invalid frame", `
			stackmap:
				frame:
			`, "invalid frame: want 'frame: NAME [<numroots> <nummeta>]', got 1 fields"},

		{"frame with one count", `
			stackmap:
				frame: main 1
			`, "got 3 fields"},

		{"duplicate frame", `
			stackmap:
				frame: main
				frame: main
			`, "duplicate frame: main"},

		{"invalid count", `
			stackmap:
				frame: main x 1
			`, "invalid integer: x"},

		{"negative count", `
			stackmap:
				frame: main -1 0
			`, "invalid count: -1"},

		{"invalid meta", `
			stackmap:
				frame: main
					meta:
						fat
			`, "invalid meta: fat"},

		{"meta out of range", `
			stackmap:
				frame: main
					meta:
						256
			`, "invalid meta: 256"},

		{"meta with two fields", `
			stackmap:
				frame: main
					meta:
						direct indirect
			`, "expected a single value, got 2 fields"},

		{"not enough meta", `
			stackmap:
				frame: main 2 2
					meta:
						direct
			`, "declares 2 metadata entries, 1 present"},

		{"unexpected section", `
			stackmap:
				frame: main
			stackmap:
			`, "unexpected section: stackmap:"},

		{"meta outside frame", `
			stackmap:
				meta:
			`, "unexpected section: meta:"},

		{"valid with comments", `
			# leading comment
			stackmap: # trailing
				frame: main
					meta:
						direct   # slot 0
						INDIRECT # slot 1
						7
				frame: sub.1 2 1
					meta:
						direct
			`, ""},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := stackmap.Asm([]byte(c.in))
			if c.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, c.err)
		})
	}
}

func TestAsmFrames(t *testing.T) {
	tbl, err := stackmap.Asm([]byte(`
		stackmap:
			frame: main
				meta:
					direct
					indirect
			frame: leaf
			frame: broken 3 1
				meta:
					2
	`))
	require.NoError(t, err)
	require.Len(t, tbl.Descriptors, 3)

	main := tbl.Lookup("main")
	require.NotNil(t, main)
	assert.Equal(t, stackmap.New(stackmap.Direct, stackmap.Indirect), main.Map)
	assert.NoError(t, main.Map.Validate())

	leaf := tbl.Lookup("leaf")
	require.NotNil(t, leaf)
	assert.Equal(t, int32(0), leaf.Map.NumRoots)
	assert.NoError(t, leaf.Map.Validate())

	broken := tbl.Lookup("broken")
	require.NotNil(t, broken)
	assert.Equal(t, int32(3), broken.Map.NumRoots)
	assert.Equal(t, int32(1), broken.Map.NumMeta)
	assert.ErrorIs(t, broken.Map.Validate(), stackmap.ErrCountMismatch)

	assert.Nil(t, tbl.Lookup("nope"))
}

func TestDasm(t *testing.T) {
	src := `
		stackmap:
			frame: main
				meta:
					direct
					indirect
			frame: leaf
			frame: broken 3 2
				meta:
					direct
					7
	`
	want := "stackmap:\n" +
		"\n" +
		"frame: main\n" +
		"\tmeta:\n" +
		"\t\tdirect\t# 000\n" +
		"\t\tindirect\t# 001\n" +
		"\n" +
		"frame: leaf\n" +
		"\n" +
		"frame: broken 3 2\n" +
		"\tmeta:\n" +
		"\t\tdirect\t# 000\n" +
		"\t\t7\t# 001\n"

	tbl, err := stackmap.Asm([]byte(src))
	require.NoError(t, err)

	b, err := stackmap.Dasm(tbl)
	require.NoError(t, err)
	assert.Equal(t, want, string(b))

	// the disassembled output is itself valid assembly for the same table
	tbl2, err := stackmap.Asm(b)
	require.NoError(t, err)
	assert.Equal(t, tbl, tbl2)
}

func TestDasmInvalid(t *testing.T) {
	_, err := stackmap.Dasm(&stackmap.Table{Descriptors: []*stackmap.Descriptor{{Name: "x"}}})
	assert.ErrorContains(t, err, "missing frame map for x")

	_, err = stackmap.Dasm(&stackmap.Table{Descriptors: []*stackmap.Descriptor{
		{Name: "y", Map: &stackmap.FrameMap{NumRoots: 1, NumMeta: 1}},
	}})
	assert.ErrorContains(t, err, "invalid frame map for y")
}
