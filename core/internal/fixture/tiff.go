// Package fixture builds EXIF blocks and small images for tests.
package fixture

import (
	"encoding/binary"
	"math"
)

// TIFF field types.
const (
	TypeByte      = 1
	TypeASCII     = 2
	TypeShort     = 3
	TypeLong      = 4
	TypeRational  = 5
	TypeUndefined = 7
	TypeSLong     = 9
	TypeSRational = 10
	TypeDouble    = 12
)

// Entry is one IFD entry. The value is encoded when the block is built so the
// same entry works in either byte order.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	value func(binary.ByteOrder) []byte
	field []byte // written verbatim as the value field when set
}

func ASCII(tag uint16, s string) Entry {
	b := append([]byte(s), 0)
	return Entry{Tag: tag, Type: TypeASCII, Count: uint32(len(b)), value: constant(b)}
}

func Byte(tag uint16, b []byte) Entry {
	return Entry{Tag: tag, Type: TypeByte, Count: uint32(len(b)), value: constant(b)}
}

func Undefined(tag uint16, b []byte) Entry {
	return Entry{Tag: tag, Type: TypeUndefined, Count: uint32(len(b)), value: constant(b)}
}

func Short(tag uint16, vs ...uint16) Entry {
	return Entry{Tag: tag, Type: TypeShort, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 2*len(vs))
		for i, v := range vs {
			o.PutUint16(b[2*i:], v)
		}
		return b
	}}
}

func Long(tag uint16, vs ...uint32) Entry {
	return Entry{Tag: tag, Type: TypeLong, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			o.PutUint32(b[4*i:], v)
		}
		return b
	}}
}

func SLong(tag uint16, vs ...int32) Entry {
	return Entry{Tag: tag, Type: TypeSLong, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			o.PutUint32(b[4*i:], uint32(v))
		}
		return b
	}}
}

// Rational takes numerator, denominator pairs.
func Rational(tag uint16, vs ...[2]uint32) Entry {
	return Entry{Tag: tag, Type: TypeRational, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			o.PutUint32(b[8*i:], v[0])
			o.PutUint32(b[8*i+4:], v[1])
		}
		return b
	}}
}

func SRational(tag uint16, vs ...[2]int32) Entry {
	return Entry{Tag: tag, Type: TypeSRational, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			o.PutUint32(b[8*i:], uint32(v[0]))
			o.PutUint32(b[8*i+4:], uint32(v[1]))
		}
		return b
	}}
}

func Double(tag uint16, vs ...float64) Entry {
	return Entry{Tag: tag, Type: TypeDouble, Count: uint32(len(vs)), value: func(o binary.ByteOrder) []byte {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			o.PutUint64(b[8*i:], math.Float64bits(v))
		}
		return b
	}}
}

// UTF16LE encodes s the way Windows stores XP* tags: UTF-16LE, NUL
// terminated, in a BYTE array.
func UTF16LE(tag uint16, s string) Entry {
	var b []byte
	for _, r := range s {
		b = append(b, byte(r), byte(r>>8))
	}
	return Byte(tag, append(b, 0, 0))
}

// Broken is an entry whose value field holds offset as is, whatever the
// type and count say. Use it for dangling offsets and bogus types.
func Broken(tag, typ uint16, count, offset uint32) Entry {
	return Entry{Tag: tag, Type: typ, Count: count, field: []byte{
		byte(offset), byte(offset >> 8), byte(offset >> 16), byte(offset >> 24),
	}}
}

func constant(b []byte) func(binary.ByteOrder) []byte {
	return func(binary.ByteOrder) []byte { return b }
}

// Sub-IFD pointer tags.
const (
	TagExifIFD    = 0x8769
	TagGPSIFD     = 0x8825
	TagInteropIFD = 0xA005
)

// EXIF describes a TIFF-structured EXIF block. Pointers to the Exif, GPS and
// Interop directories are added automatically when those are non-empty.
type EXIF struct {
	Order   binary.ByteOrder // little-endian when nil
	IFD0    []Entry
	IFD1    []Entry
	Exif    []Entry
	GPS     []Entry
	Interop []Entry
}

type block struct {
	entries []Entry
	off     uint32
	next    uint32
}

// Build lays the block out as header, IFD0, IFD1, Exif, GPS, Interop, each
// directory followed by its out-of-line values.
func (e EXIF) Build() []byte {
	order := e.Order
	if order == nil {
		order = binary.LittleEndian
	}

	blocks := []*block{
		{entries: append([]Entry(nil), e.IFD0...)},
		{entries: e.IFD1},
		{entries: append([]Entry(nil), e.Exif...)},
		{entries: e.GPS},
		{entries: e.Interop},
	}
	ifd0, ifd1, exif, gps, interop := blocks[0], blocks[1], blocks[2], blocks[3], blocks[4]

	// Placeholders first so sizes are known; offsets are patched below.
	if len(e.Exif) > 0 || len(e.Interop) > 0 {
		ifd0.entries = append(ifd0.entries, Long(TagExifIFD, 0))
	}
	if len(e.GPS) > 0 {
		ifd0.entries = append(ifd0.entries, Long(TagGPSIFD, 0))
	}
	if len(e.Interop) > 0 {
		exif.entries = append(exif.entries, Long(TagInteropIFD, 0))
	}

	off := uint32(8)
	for i, b := range blocks {
		if i > 0 && len(b.entries) == 0 {
			continue
		}
		b.off = off
		off += blockSize(b.entries, order)
	}
	total := off

	patch := func(b *block, tag uint16, target *block) {
		for i, en := range b.entries {
			if en.Tag == tag && en.Type == TypeLong && en.Count == 1 && en.field == nil {
				b.entries[i] = Long(tag, target.off)
			}
		}
	}
	if len(exif.entries) > 0 {
		patch(ifd0, TagExifIFD, exif)
	}
	if len(gps.entries) > 0 {
		patch(ifd0, TagGPSIFD, gps)
	}
	if len(interop.entries) > 0 {
		patch(exif, TagInteropIFD, interop)
	}
	if len(ifd1.entries) > 0 {
		ifd0.next = ifd1.off
	}

	out := make([]byte, total)
	if order == binary.BigEndian {
		copy(out, "MM")
	} else {
		copy(out, "II")
	}
	order.PutUint16(out[2:], 42)
	order.PutUint32(out[4:], 8)
	for i, b := range blocks {
		if i > 0 && len(b.entries) == 0 {
			continue
		}
		writeBlock(out, b, order)
	}
	return out
}

func blockSize(entries []Entry, order binary.ByteOrder) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, en := range entries {
		if en.field != nil {
			continue
		}
		if n := uint32(len(en.value(order))); n > 4 {
			size += n + n%2
		}
	}
	return size
}

func writeBlock(out []byte, b *block, order binary.ByteOrder) {
	p := b.off
	order.PutUint16(out[p:], uint16(len(b.entries)))
	data := p + 2 + uint32(12*len(b.entries)) + 4
	for i, en := range b.entries {
		at := p + 2 + uint32(12*i)
		order.PutUint16(out[at:], en.Tag)
		order.PutUint16(out[at+2:], en.Type)
		order.PutUint32(out[at+4:], en.Count)
		if en.field != nil {
			copy(out[at+8:at+12], en.field)
			continue
		}
		v := en.value(order)
		if len(v) <= 4 {
			copy(out[at+8:at+12], v)
			continue
		}
		order.PutUint32(out[at+8:], data)
		copy(out[data:], v)
		data += uint32(len(v) + len(v)%2)
	}
	order.PutUint32(out[p+2+uint32(12*len(b.entries)):], b.next)
}
