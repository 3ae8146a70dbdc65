package stackmap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// This asm file implements a human-readable/writable form of a table of
// frame descriptors. This is mostly to support testing of the root discovery
// protocol without going through a compiler. A disassembler is also
// implemented.
//
// The assembly format looks like this (indentation and spacing is arbitrary,
// but order of sections is important):
//
// 	stackmap:                            # required
// 		frame: NAME [<numroots> <nummeta>]
//                                       # zero or more, counts default to the
//                                       # number of meta entries
// 			meta:                            # optional, one entry per root slot
// 				direct
// 				indirect
// 				7                              # raw value, for invalid maps

var sections = map[string]bool{
	"stackmap:": true,
	"frame:":    true,
	"meta:":     true,
}

var metaNames = map[string]Meta{
	"direct":   Direct,
	"indirect": Indirect,
}

// Asm loads a table of frame descriptors from its assembler textual format.
func Asm(b []byte) (*Table, error) {
	asm := asm{s: bufio.NewScanner(bytes.NewReader(b))}

	// must start with the stackmap: section
	fields := asm.next()
	asm.stackmap(fields)

	fields = asm.next()
	for asm.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "frame:") {
		fields = asm.frame(fields)
	}

	if asm.err == nil && len(fields) > 0 {
		asm.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	return asm.t, asm.err
}

type asm struct {
	s     *bufio.Scanner
	t     *Table
	names map[string]bool
	err   error
}

func (a *asm) stackmap(fields []string) {
	if a.err != nil {
		return
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "stackmap:") {
		msg := "expected stackmap section"
		if len(fields) > 0 {
			msg += ", found " + fields[0]
		}
		a.err = errors.New(msg)
		return
	}
	if len(fields) > 1 {
		a.err = fmt.Errorf("invalid stackmap: want no argument, got %d fields", len(fields))
		return
	}
	a.t = &Table{}
	a.names = make(map[string]bool)
}

func (a *asm) frame(fields []string) []string {
	if len(fields) != 2 && len(fields) != 4 {
		a.err = fmt.Errorf("invalid frame: want 'frame: NAME [<numroots> <nummeta>]', got %d fields (%s)", len(fields), strings.Join(fields, " "))
		return fields
	}

	name := fields[1]
	if a.names[name] {
		a.err = fmt.Errorf("duplicate frame: %s", name)
		return fields
	}
	a.names[name] = true

	explicit := len(fields) == 4
	var nroots, nmeta int32
	if explicit {
		nroots = a.int32(fields[2])
		nmeta = a.int32(fields[3])
	}

	fields = a.next()
	meta, fields := a.meta(fields)
	if a.err != nil {
		return fields
	}
	if !explicit {
		nroots = int32(len(meta))
		nmeta = int32(len(meta))
	} else if int(nmeta) > len(meta) {
		a.err = fmt.Errorf("invalid frame %s: declares %d metadata entries, %d present", name, nmeta, len(meta))
		return fields
	}

	fm := &FrameMap{NumRoots: nroots, NumMeta: nmeta, Meta: meta}
	a.t.Descriptors = append(a.t.Descriptors, &Descriptor{Name: name, Map: fm})
	return fields
}

func (a *asm) meta(fields []string) ([]Meta, []string) {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "meta:") {
		return nil, fields
	}

	var meta []Meta
	for fields = a.next(); len(fields) > 0 && !sections[strings.ToLower(fields[0])]; fields = a.next() {
		if len(fields) != 1 {
			a.err = fmt.Errorf("invalid meta: expected a single value, got %d fields", len(fields))
			return meta, fields
		}
		if m, ok := metaNames[strings.ToLower(fields[0])]; ok {
			meta = append(meta, m)
			continue
		}
		u, err := strconv.ParseUint(fields[0], 10, 8)
		if err != nil {
			a.err = fmt.Errorf("invalid meta: %s: %w", fields[0], err)
			return meta, fields
		}
		meta = append(meta, Meta(u))
	}
	return meta, fields
}

func (a *asm) int32(s string) int32 {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("invalid integer: %s: %w", s, err)
	}
	if i < 0 && a.err == nil {
		a.err = fmt.Errorf("invalid count: %s", s)
	}
	return int32(i)
}

// returns the fields for the next non-empty, non-comment-only line, so that
// fields[0] will contain the line identification if it is a section.
func (a *asm) next() []string {
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		fields := strings.Fields(a.s.Text())
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			// strip comments to make rest of parsing simpler
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes a table of frame descriptors to its assembler textual format.
func Dasm(t *Table) ([]byte, error) {
	d := dasm{buf: new(bytes.Buffer)}
	d.write("stackmap:\n")
	for _, desc := range t.Descriptors {
		d.write("\n")
		d.descriptor(desc)
	}
	return d.buf.Bytes(), d.err
}

type dasm struct {
	buf *bytes.Buffer
	err error
}

func (d *dasm) descriptor(desc *Descriptor) {
	if d.err != nil {
		return
	}
	fm := desc.Map
	if fm == nil {
		d.err = fmt.Errorf("missing frame map for %s", desc.Name)
		return
	}
	if fm.NumMeta < 0 || int(fm.NumMeta) > len(fm.Meta) {
		d.err = fmt.Errorf("invalid frame map for %s: %d metadata entries, %d present", desc.Name, fm.NumMeta, len(fm.Meta))
		return
	}

	d.writef("frame: %s", desc.Name)
	if fm.NumRoots != fm.NumMeta || int(fm.NumMeta) != len(fm.Meta) {
		d.writef(" %d %d", fm.NumRoots, fm.NumMeta)
	}
	d.write("\n")

	if fm.NumMeta > 0 {
		d.write("\tmeta:\n")
		for i, m := range fm.Meta[:fm.NumMeta] {
			if m.Valid() {
				d.writef("\t\t%s\t# %03d\n", m, i)
			} else {
				d.writef("\t\t%d\t# %03d\n", uint8(m), i)
			}
		}
	}
}

func (d *dasm) writef(s string, args ...any) {
	d.write(fmt.Sprintf(s, args...))
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
