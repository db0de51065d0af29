package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// JPEG markers, all preceded by 0xFF.
const (
	markerTEM   = 0x01
	markerRST0  = 0xD0
	markerRST7  = 0xD7
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	MarkerAPP0  = 0xE0
	MarkerAPP1  = 0xE1
	MarkerAPP2  = 0xE2
	MarkerAPP13 = 0xED
	MarkerAPP14 = 0xEE
	MarkerAPP15 = 0xEF
	MarkerCOM   = 0xFE
)

var (
	ErrNotJPEG   = errors.New("container: not a JPEG")
	ErrTruncated = errors.New("container: truncated data")
	ErrCorrupt   = errors.New("container: corrupt segment structure")

	exifHeader  = []byte("Exif\x00\x00")
	xmpHeader   = []byte("http://ns.adobe.com/xap/1.0/\x00")
	mpfHeader   = []byte("MPF\x00")
	jfifHeader  = []byte("JFIF\x00")
	iccHeader   = []byte("ICC_PROFILE\x00")
	adobeHeader = []byte("Adobe")
)

// Segment is one marker segment. An SOS segment also carries the
// entropy-coded data that follows it.
type Segment struct {
	Marker     byte
	Data       []byte // payload after the length field
	Standalone bool   // marker has no length or payload (TEM, RSTn, EOI)
	Entropy    []byte // scan data after an SOS header, RSTn markers included
}

// IsExif reports whether the segment is an APP1 EXIF block.
func (s Segment) IsExif() bool {
	return s.Marker == MarkerAPP1 && bytes.HasPrefix(s.Data, exifHeader)
}

// IsXMP reports whether the segment is an APP1 XMP packet.
func (s Segment) IsXMP() bool {
	return s.Marker == MarkerAPP1 && bytes.HasPrefix(s.Data, xmpHeader)
}

// IsMPF reports whether the segment is an APP2 multi-picture index, which
// points at images stored after EOI.
func (s Segment) IsMPF() bool {
	return s.Marker == MarkerAPP2 && bytes.HasPrefix(s.Data, mpfHeader)
}

// IsJFIF reports whether the segment is the APP0 JFIF header. JFXX
// thumbnail extensions do not count.
func (s Segment) IsJFIF() bool {
	return s.Marker == MarkerAPP0 && bytes.HasPrefix(s.Data, jfifHeader)
}

// IsICC reports whether the segment is an APP2 ICC profile chunk.
func (s Segment) IsICC() bool {
	return s.Marker == MarkerAPP2 && bytes.HasPrefix(s.Data, iccHeader)
}

// IsAdobe reports whether the segment is the APP14 Adobe colour transform.
func (s Segment) IsAdobe() bool {
	return s.Marker == MarkerAPP14 && bytes.HasPrefix(s.Data, adobeHeader)
}

// Label names the segment for logs.
func (s Segment) Label() string {
	switch {
	case s.IsExif():
		return "EXIF"
	case s.IsXMP():
		return "XMP"
	case s.IsMPF():
		return "MPF"
	case s.IsICC():
		return "ICC"
	case s.IsJFIF():
		return "JFIF"
	case s.IsAdobe():
		return "Adobe"
	case s.Marker == MarkerCOM:
		return "COM"
	case s.Marker >= MarkerAPP0 && s.Marker <= MarkerAPP15:
		return fmt.Sprintf("APP%d", s.Marker-MarkerAPP0)
	}
	return fmt.Sprintf("0x%02X", s.Marker)
}

// Segments is a JPEG split into the segments before the first scan, the
// segments from the first SOS through EOI, and whatever follows EOI.
type Segments struct {
	Header  []Segment
	Body    []Segment
	Trailer []byte
}

// ParseJPEG splits data at marker boundaries. Any structural problem is an
// error, except a final scan that runs to the end of data without EOI.
func ParseJPEG(data []byte) (*Segments, error) {
	header, sos, err := scanJPEGHeader(data)
	if err != nil {
		return nil, err
	}
	body, end, err := scanJPEGBody(data, sos)
	if err != nil {
		return nil, err
	}
	return &Segments{Header: header, Body: body, Trailer: data[end:]}, nil
}

// All returns the header and body segments in file order.
func (s *Segments) All() []Segment {
	all := make([]Segment, 0, len(s.Header)+len(s.Body))
	all = append(all, s.Header...)
	return append(all, s.Body...)
}

// scanJPEGHeader walks the segments after SOI. It returns what it managed to
// read along with any error, and the offset of the SOS marker on success.
func scanJPEGHeader(data []byte) ([]Segment, int, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, 0, ErrNotJPEG
	}
	var segs []Segment
	i := 2
	for {
		if i >= len(data) {
			return segs, 0, fmt.Errorf("%w: no scan before end of data", ErrTruncated)
		}
		marker, next, err := readMarker(data, i)
		if err != nil {
			return segs, 0, err
		}
		i = next

		switch {
		case marker == markerSOS:
			return segs, i - 2, nil
		case marker == markerEOI:
			return segs, 0, fmt.Errorf("%w: end of image before first scan", ErrCorrupt)
		case marker == markerTEM || isRST(marker):
			segs = append(segs, Segment{Marker: marker, Standalone: true})
			continue
		}

		seg, next, err := readSegment(data, marker, i)
		if err != nil {
			return segs, 0, err
		}
		segs = append(segs, seg)
		i = next
	}
}

// scanJPEGBody walks from the first SOS through EOI and returns the offset
// just past EOI. Entropy-coded bytes go with the SOS before them; tables,
// comments and application segments between or after scans are segments of
// their own.
func scanJPEGBody(data []byte, i int) ([]Segment, int, error) {
	var segs []Segment
	for i < len(data) {
		marker, next, err := readMarker(data, i)
		if err != nil {
			return segs, 0, err
		}
		i = next

		switch {
		case marker == markerEOI:
			return append(segs, Segment{Marker: marker, Standalone: true}), i, nil
		case marker == markerTEM || isRST(marker):
			segs = append(segs, Segment{Marker: marker, Standalone: true})
			continue
		}

		seg, next, err := readSegment(data, marker, i)
		if err != nil {
			return segs, 0, err
		}
		i = next
		if marker == markerSOS {
			start := i
			i = entropyEnd(data, i)
			seg.Entropy = data[start:i]
		}
		segs = append(segs, seg)
	}
	return segs, len(data), nil
}

// readMarker reads the marker at data[i], skipping 0xFF fill bytes, and
// returns it with the offset after it.
func readMarker(data []byte, i int) (byte, int, error) {
	if data[i] != 0xFF {
		return 0, 0, fmt.Errorf("%w: expected marker at offset %d", ErrCorrupt, i)
	}
	for i < len(data) && data[i] == 0xFF {
		i++
	}
	if i >= len(data) {
		return 0, 0, fmt.Errorf("%w: marker cut off", ErrTruncated)
	}
	marker := data[i]
	if marker == 0x00 || marker == markerSOI {
		return 0, 0, fmt.Errorf("%w: unexpected marker 0x%02X at offset %d", ErrCorrupt, marker, i)
	}
	return marker, i + 1, nil
}

// readSegment reads the length-prefixed payload starting at data[i].
func readSegment(data []byte, marker byte, i int) (Segment, int, error) {
	if i+2 > len(data) {
		return Segment{}, 0, fmt.Errorf("%w: segment length cut off", ErrTruncated)
	}
	n := int(binary.BigEndian.Uint16(data[i : i+2]))
	if n < 2 {
		return Segment{}, 0, fmt.Errorf("%w: segment 0x%02X length %d", ErrCorrupt, marker, n)
	}
	if i+n > len(data) {
		return Segment{}, 0, fmt.Errorf("%w: segment 0x%02X needs %d bytes", ErrTruncated, marker, n)
	}
	return Segment{Marker: marker, Data: data[i+2 : i+n]}, i + n, nil
}

// entropyEnd returns the offset of the first real marker at or after i.
// Stuffed zeros and RSTn belong to the scan.
func entropyEnd(data []byte, i int) int {
	for i < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		if i+1 >= len(data) {
			return len(data)
		}
		switch m := data[i+1]; {
		case m == 0x00 || isRST(m):
			i += 2
		case m == 0xFF:
			i++
		default:
			return i
		}
	}
	return len(data)
}

func isRST(m byte) bool { return m >= markerRST0 && m <= markerRST7 }

// Without returns a copy of s minus the segments drop selects, wherever
// they appear.
func (s *Segments) Without(drop func(Segment) bool) *Segments {
	out := &Segments{Trailer: s.Trailer}
	for _, seg := range s.Header {
		if !drop(seg) {
			out.Header = append(out.Header, seg)
		}
	}
	for _, seg := range s.Body {
		if !drop(seg) {
			out.Body = append(out.Body, seg)
		}
	}
	return out
}

// Bytes serialises the segments into a new buffer.
func (s *Segments) Bytes() []byte {
	size := 2 + len(s.Trailer)
	for _, seg := range s.All() {
		size += 4 + len(seg.Data) + len(seg.Entropy)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write([]byte{0xFF, markerSOI})
	for _, seg := range s.All() {
		buf.WriteByte(0xFF)
		buf.WriteByte(seg.Marker)
		if seg.Standalone {
			continue
		}
		length := uint16(len(seg.Data) + 2)
		buf.WriteByte(byte(length >> 8))
		buf.WriteByte(byte(length))
		buf.Write(seg.Data)
		buf.Write(seg.Entropy)
	}
	buf.Write(s.Trailer)
	return buf.Bytes()
}

// jpegExif returns the TIFF block of the first APP1 EXIF segment. A damaged
// header still yields any EXIF segment read before the damage.
func jpegExif(data []byte) []byte {
	segs, _, _ := scanJPEGHeader(data)
	for _, seg := range segs {
		if seg.IsExif() {
			return seg.Data[len(exifHeader):]
		}
	}
	return nil
}
