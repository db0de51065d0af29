package core

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindRational
	KindText
	KindBytes
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindRational:
		return "rational"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindSequence:
		return "sequence"
	default:
		return "invalid"
	}
}

// Value is a tag value. Exactly one variant is set, selected by Kind; switch
// on Kind() and read the matching accessor.
type Value struct {
	kind Kind
	i    int64
	num  int64
	den  int64
	s    string
	b    []byte
	seq  []Value
}

// Int builds an Integer value.
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }

// Rational builds a Rational value. The denominator is kept as stored, zero
// included.
func Rational(num, den int64) Value { return Value{kind: KindRational, num: num, den: den} }

// Text builds a Text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Bytes builds a Bytes value holding a private copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte(nil), b...)}
}

// Sequence builds a Sequence value.
func Sequence(vs ...Value) Value {
	return Value{kind: KindSequence, seq: append([]Value(nil), vs...)}
}

func (v Value) Kind() Kind { return v.kind }

// Integer returns the Integer variant.
func (v Value) Integer() (int64, bool) { return v.i, v.kind == KindInteger }

// Rational returns the Rational variant.
func (v Value) Rational() (num, den int64, ok bool) { return v.num, v.den, v.kind == KindRational }

// Text returns the Text variant.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Bytes returns the Bytes variant. The slice must not be modified.
func (v Value) Bytes() ([]byte, bool) { return v.b, v.kind == KindBytes }

// Sequence returns the Sequence variant. The slice must not be modified.
func (v Value) Sequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }

// Equal reports whether v and o hold the same variant and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindRational:
		return v.num == o.num && v.den == o.den
	case KindText:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	}
	return true
}

const maxBytesShown = 32

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindRational:
		return fmt.Sprintf("%d/%d", v.num, v.den)
	case KindText:
		return v.s
	case KindBytes:
		if len(v.b) > maxBytesShown {
			return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(v.b[:maxBytesShown]), len(v.b))
		}
		return hex.EncodeToString(v.b)
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

// MarshalJSON renders integers as numbers, sequences as arrays, bytes as hex
// and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return json.Marshal(v.i)
	case KindBytes:
		return json.Marshal(hex.EncodeToString(v.b))
	case KindSequence:
		if v.seq == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.seq)
	case KindRational, KindText:
		return json.Marshal(v.String())
	default:
		return []byte("null"), nil
	}
}
