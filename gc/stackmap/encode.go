package stackmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// headerSize is the encoded size of the two counts that start a frame map.
const headerSize = 8

// MarshalBinary encodes the frame map as emitted in the compiler's constant
// data: little-endian uint32 NumRoots and NumMeta followed by NumMeta bytes
// of metadata. The counts are encoded as declared, even if inconsistent.
func (fm *FrameMap) MarshalBinary() ([]byte, error) {
	return fm.appendBinary(nil)
}

func (fm *FrameMap) appendBinary(b []byte) ([]byte, error) {
	if fm.NumMeta < 0 || int(fm.NumMeta) > len(fm.Meta) {
		return nil, fmt.Errorf("cannot encode %d metadata entries, %d present", fm.NumMeta, len(fm.Meta))
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(fm.NumRoots))
	b = binary.LittleEndian.AppendUint32(b, uint32(fm.NumMeta))
	for _, m := range fm.Meta[:fm.NumMeta] {
		b = append(b, byte(m))
	}
	return b, nil
}

// UnmarshalBinary decodes a frame map encoded by MarshalBinary. It does not
// validate the map, so that inconsistent compiler output can still be
// inspected; call Validate for that.
func (fm *FrameMap) UnmarshalBinary(b []byte) error {
	n, err := fm.decode(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("unexpected %d trailing bytes after frame map", len(b)-n)
	}
	return nil
}

func (fm *FrameMap) decode(b []byte) (int, error) {
	if len(b) < headerSize {
		return 0, errors.New("frame map too short")
	}
	nroots := binary.LittleEndian.Uint32(b)
	nmeta := binary.LittleEndian.Uint32(b[4:])
	if nroots > math.MaxInt32 || nmeta > math.MaxInt32 {
		return 0, fmt.Errorf("invalid frame map counts: %d roots, %d metadata", nroots, nmeta)
	}
	if uint64(len(b)-headerSize) < uint64(nmeta) {
		return 0, fmt.Errorf("frame map declares %d metadata entries, %d bytes available", nmeta, len(b)-headerSize)
	}

	meta := make([]Meta, nmeta)
	for i := range meta {
		meta[i] = Meta(b[headerSize+i])
	}
	*fm = FrameMap{NumRoots: int32(nroots), NumMeta: int32(nmeta), Meta: meta}
	return headerSize + int(nmeta), nil
}

// A Descriptor associates a frame map with the name of the function it
// describes.
type Descriptor struct {
	Name string
	Map  *FrameMap
}

// A Table is the ordered list of frame descriptors emitted for a compilation
// unit.
type Table struct {
	Descriptors []*Descriptor
}

// Lookup returns the descriptor with that name, or nil.
func (t *Table) Lookup(name string) *Descriptor {
	for _, d := range t.Descriptors {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// EncodeTable encodes the table as a uvarint count of descriptors, followed
// by each descriptor as a uvarint-prefixed name and its binary frame map.
func EncodeTable(t *Table) ([]byte, error) {
	b := binary.AppendUvarint(nil, uint64(len(t.Descriptors)))
	for i, d := range t.Descriptors {
		if d.Map == nil {
			return nil, fmt.Errorf("descriptor %d (%s): missing frame map", i, d.Name)
		}
		b = binary.AppendUvarint(b, uint64(len(d.Name)))
		b = append(b, d.Name...)

		var err error
		if b, err = d.Map.appendBinary(b); err != nil {
			return nil, fmt.Errorf("descriptor %d (%s): %w", i, d.Name, err)
		}
	}
	return b, nil
}

// DecodeTable decodes a table encoded by EncodeTable.
func DecodeTable(b []byte) (*Table, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, errors.New("invalid uvarint descriptor count")
	}
	b = b[n:]

	var t Table
	for i := uint64(0); i < count; i++ {
		sz, n := binary.Uvarint(b)
		if n <= 0 || sz > uint64(len(b)-n) {
			return nil, fmt.Errorf("descriptor %d: invalid name length", i)
		}
		name := string(b[n : n+int(sz)])
		b = b[n+int(sz):]

		var fm FrameMap
		n, err := fm.decode(b)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d (%s): %w", i, name, err)
		}
		b = b[n:]
		t.Descriptors = append(t.Descriptors, &Descriptor{Name: name, Map: &fm})
	}
	if len(b) > 0 {
		return nil, fmt.Errorf("unexpected %d trailing bytes after table", len(b))
	}
	return &t, nil
}
