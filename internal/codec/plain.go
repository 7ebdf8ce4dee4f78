package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PlainEncoder writes values as a raw little-endian u64 array, preceded
// by an 8-byte element count so PlainDecoder can size itself from bytes
// alone (the reader's directory slot gives the byte length too, but the
// count header lets a Plain payload self-describe the same way
// Elias-Fano's does).
type PlainEncoder struct {
	values []uint64
}

// NewPlainEncoder returns a PlainEncoder. universe is unused by Plain but
// accepted to satisfy the common encoder-construction shape.
func NewPlainEncoder(universe uint64, numElem int) *PlainEncoder {
	return &PlainEncoder{values: make([]uint64, 0, numElem)}
}

func (e *PlainEncoder) Encode(values []uint64) error {
	e.values = append(e.values[:0], values...)
	return nil
}

func (e *PlainEncoder) Len() int {
	return 8 + 8*len(e.values)
}

func (e *PlainEncoder) WriteTo(w io.Writer) (int64, error) {
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(e.values)))
	n, err := w.Write(header[:])
	if err != nil {
		return int64(n), err
	}
	total := int64(n)

	buf := make([]byte, 8*len(e.values))
	for i, v := range e.values {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	n2, err := w.Write(buf)
	total += int64(n2)
	return total, err
}

// PlainDecoder holds the values of a Plain payload, copied out of the
// encoded bytes when it is constructed.
type PlainDecoder struct {
	values []uint64
}

// NewPlainDecoder parses data written by PlainEncoder.WriteTo.
func NewPlainDecoder(data []byte) (*PlainDecoder, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("codec: plain payload too short (%d bytes)", len(data))
	}
	count := binary.LittleEndian.Uint64(data[:8])
	rest := data[8:]
	if uint64(len(rest)) < count*8 {
		return nil, fmt.Errorf("codec: plain payload truncated: want %d values, have %d bytes", count, len(rest))
	}
	values := make([]uint64, count)
	for i := range values {
		values[i] = binary.LittleEndian.Uint64(rest[i*8:])
	}
	return &PlainDecoder{values: values}, nil
}

func (d *PlainDecoder) Get(i int) (uint64, error) {
	if i < 0 || i >= len(d.values) {
		return 0, fmt.Errorf("codec: index %d out of bounds (len %d)", i, len(d.values))
	}
	return d.values[i], nil
}

func (d *PlainDecoder) Len() int { return len(d.values) }

func (d *PlainDecoder) All() []uint64 { return d.values }
