// Package codec implements the sorted-uint64-sequence encoders used to
// compress IVF posting lists: a raw Plain codec and the succinct
// Elias-Fano codec. Both satisfy the same encode/decode contract so an
// index can pick either at build time without the IVF reader caring
// which one produced a given posting list's bytes.
package codec

import (
	"fmt"
	"io"
)

// Type tags which codec produced a given posting list's bytes. Stored in
// the IVF index file header so every posting list in a segment is read
// back with the codec it was written with.
type Type uint8

const (
	// Plain stores values as a raw little-endian u64 array.
	Plain Type = iota
	// EliasFano stores values in the succinct Elias-Fano representation.
	EliasFano
)

func (t Type) String() string {
	switch t {
	case Plain:
		return "plain"
	case EliasFano:
		return "elias_fano"
	default:
		return "unknown"
	}
}

// Encoder compresses a sorted slice of u64 into a byte sequence. Encode
// may be called at most once per Encoder instance.
type Encoder interface {
	// Encode compresses the sorted values. Behavior is undefined if values
	// is not sorted ascending.
	Encode(values []uint64) error
	// Len returns the size in bytes of the encoded payload that WriteTo
	// would write.
	Len() int
	// WriteTo flushes the encoded bytes and returns the number of bytes
	// written, which equals Len(): Len already counts the codec's small
	// fixed header.
	WriteTo(w io.Writer) (int64, error)
}

// Decoder gives ordered, random-access iteration over a decoded sequence.
type Decoder interface {
	// Get returns the i-th decoded value. Returns an error if i is out of
	// range.
	Get(i int) (uint64, error)
	// Len returns the number of decoded elements.
	Len() int
	// All returns every decoded value in order, materialized as a slice
	// for callers that want to range over it directly.
	All() []uint64
}

// NewEncoder constructs the encoder for t. universe is the exclusive
// upper bound on values that will be encoded (0 if unknown, which forces
// Elias-Fano's lower-bit-length to 0). numElem is the count of values
// that Encode will be called with, used to pre-size internal buffers.
func NewEncoder(t Type, universe uint64, numElem int) (Encoder, error) {
	switch t {
	case Plain:
		return NewPlainEncoder(universe, numElem), nil
	case EliasFano:
		return NewEliasFanoEncoder(universe, numElem), nil
	default:
		return nil, fmt.Errorf("codec: unknown encoder type %d", t)
	}
}

// NewDecoder parses the header-prefixed bytes written by the Encoder of
// type t and returns a ready-to-use Decoder.
func NewDecoder(t Type, data []byte) (Decoder, error) {
	switch t {
	case Plain:
		return NewPlainDecoder(data)
	case EliasFano:
		return NewEliasFanoDecoder(data)
	default:
		return nil, fmt.Errorf("codec: unknown decoder type %d", t)
	}
}
