// Package tags walks the IFDs of a located EXIF directory and flattens every
// tag into a core.MetadataMap.
package tags

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/photo-scrub/core"
	"github.com/ankit-chaubey/photo-scrub/core/container"
)

const ifdEntrySize = 12

// Parse decodes every section of dir. Sections that cannot be read are left
// out; Parse never fails. A nil dir yields an empty map.
func Parse(dir *container.Directory) core.MetadataMap {
	m := make(core.MetadataMap)
	if dir == nil {
		return m
	}
	w := &walker{
		r:     bytes.NewReader(dir.Raw),
		order: dir.Order,
		seen:  make(map[uint32]bool),
	}

	primary, next := w.dir(dir.IFD0)
	w.add(m, core.PrimaryImage, primary)

	thumb, _ := w.dir(next)
	w.add(m, core.Thumbnail, thumb)

	capture, _ := w.dir(pointer(primary, tagExifIFD))
	w.add(m, core.CaptureInfo, capture)

	gps, _ := w.dir(pointer(primary, tagGPSIFD))
	w.add(m, core.GPSInfo, gps)

	interop, _ := w.dir(pointer(capture, tagInteropIFD))
	w.add(m, core.Interoperability, interop)

	return m
}

// entry is a decoded IFD entry. raw is set when goexif could not decode the
// value; the tag then only carries its id and the 4-byte value field.
type entry struct {
	*tiff.Tag
	raw bool
}

type walker struct {
	r     *bytes.Reader
	order binary.ByteOrder
	seen  map[uint32]bool
}

// dir decodes the IFD at offset and returns its tags and the next-IFD
// offset. Offsets that are zero, out of range or already visited yield nil.
func (w *walker) dir(offset uint32) ([]entry, uint32) {
	if offset < 8 || int64(offset)+2 > w.r.Size() || w.seen[offset] {
		return nil, 0
	}
	w.seen[offset] = true

	if _, err := w.r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, 0
	}
	d, next, err := tiff.DecodeDir(w.r, w.order)
	if err != nil {
		return w.salvage(offset)
	}
	if next < 0 {
		next = 0
	}
	out := make([]entry, len(d.Tags))
	for i, t := range d.Tags {
		out[i] = entry{Tag: t}
	}
	return out, uint32(next)
}

// salvage decodes the entries of a directory one at a time, so that a single
// entry with a bad type or a dangling value offset does not cost the rest.
// Entries that goexif rejects keep their raw 4-byte value field.
func (w *walker) salvage(offset uint32) ([]entry, uint32) {
	raw := make([]byte, 4)
	if _, err := w.r.ReadAt(raw[:2], int64(offset)); err != nil {
		return nil, 0
	}
	count := int64(w.order.Uint16(raw))
	start := int64(offset) + 2
	truncated := false
	if avail := (w.r.Size() - start) / ifdEntrySize; count > avail {
		count, truncated = avail, true
	}

	var out []entry
	for i := int64(0); i < count; i++ {
		at := start + i*ifdEntrySize
		if _, err := w.r.Seek(at, io.SeekStart); err != nil {
			break
		}
		t, err := tiff.DecodeTag(w.r, w.order)
		if err == nil {
			out = append(out, entry{Tag: t})
			continue
		}
		field := make([]byte, ifdEntrySize)
		if _, err := w.r.ReadAt(field, at); err != nil {
			break
		}
		out = append(out, entry{raw: true, Tag: &tiff.Tag{
			Id:    w.order.Uint16(field[0:2]),
			Type:  tiff.DataType(w.order.Uint16(field[2:4])),
			Count: w.order.Uint32(field[4:8]),
			Val:   field[8:12],
		}})
	}

	var next uint32
	if !truncated {
		if _, err := w.r.ReadAt(raw, start+count*ifdEntrySize); err == nil {
			next = w.order.Uint32(raw)
		}
	}
	return out, next
}

func (w *walker) add(m core.MetadataMap, s core.Section, entries []entry) {
	for _, e := range entries {
		if isPointer(e.Id) {
			continue
		}
		v := core.Bytes(e.Val)
		if !e.raw {
			v = convert(s, e.Tag, w.order)
		}
		m.Add(core.TagEntry{
			Section: s,
			Code:    e.Id,
			Name:    Resolve(s, e.Id),
			Value:   v,
		})
	}
}

func isPointer(id uint16) bool {
	return id == tagExifIFD || id == tagGPSIFD || id == tagInteropIFD
}

// pointer returns the offset held by the sub-IFD pointer id, or 0.
func pointer(entries []entry, id uint16) uint32 {
	for _, e := range entries {
		if e.Id != id || e.raw || e.Format() != tiff.IntVal || e.Count < 1 {
			continue
		}
		v, err := e.Int64(0)
		if err != nil || v <= 0 || v > 1<<32-1 {
			return 0
		}
		return uint32(v)
	}
	return 0
}
