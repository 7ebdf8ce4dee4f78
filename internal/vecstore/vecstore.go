// Package vecstore implements the fixed-file vector storage shared by
// every segment kind: a flat, mmap-backed array of fixed-dimension
// rows, addressed by row index. One instantiation stores raw float32
// vectors; another stores byte codes (quantizer output), which is the
// one the IVF segment reader opens. Both share the same
// on-disk shape: an 8-byte row count followed by the packed row data,
// matching the header-then-payload convention used across this module's
// fixed-file formats (see internal/codec and internal/ivfformat).
package vecstore

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/xDarkicex/spanndb/internal/memlayout"
)

// Row is a value storable in a FixedFileVectorStorage: either the raw
// float32 components of a vector, or the quantized byte codes produced
// by a Quantizer.
type Row interface {
	float32 | byte
}

// FixedFileVectorStorage is a read-only, mmap-backed view over rowCount
// fixed-width rows of dimension dim. Get returns a zero-copy slice into
// the mapped file; it stays valid only while the storage is open.
type FixedFileVectorStorage[T Row] struct {
	mapping  *memlayout.Mapping
	rows     []T
	dim      int
	rowCount int
}

// Open mmaps path and validates that its declared row count matches the
// payload length given dim.
func Open[T Row](path string, dim int) (*FixedFileVectorStorage[T], error) {
	m, err := memlayout.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	data := m.Bytes()
	if len(data) < 8 {
		m.Close()
		return nil, fmt.Errorf("vecstore: %s too short for header", path)
	}
	rowCount := int(binary.LittleEndian.Uint64(data[:8]))

	var rows []T
	switch any(*new(T)).(type) {
	case float32:
		f := memlayout.ReinterpretFloat32(data[8:])
		rows = any(f).([]T)
	case byte:
		rows = any(data[8:]).([]T)
	default:
		m.Close()
		return nil, fmt.Errorf("vecstore: unsupported row type")
	}

	want := rowCount * dim
	if len(rows) < want {
		m.Close()
		return nil, fmt.Errorf("vecstore: %s declares %d rows of dim %d but payload holds only %d elements", path, rowCount, dim, len(rows))
	}

	return &FixedFileVectorStorage[T]{mapping: m, rows: rows[:want], dim: dim, rowCount: rowCount}, nil
}

// Get returns the i-th row as a zero-copy slice of length dim.
func (s *FixedFileVectorStorage[T]) Get(i int) ([]T, error) {
	if i < 0 || i >= s.rowCount {
		return nil, fmt.Errorf("vecstore: row %d out of bounds (count %d)", i, s.rowCount)
	}
	start := i * s.dim
	return s.rows[start : start+s.dim], nil
}

// Len returns the number of stored rows.
func (s *FixedFileVectorStorage[T]) Len() int { return s.rowCount }

// Dim returns the row width.
func (s *FixedFileVectorStorage[T]) Dim() int { return s.dim }

// Close unmaps the backing file.
func (s *FixedFileVectorStorage[T]) Close() error {
	if s.mapping == nil {
		return nil
	}
	err := s.mapping.Close()
	s.mapping = nil
	return err
}

// WriteFixedFile writes rowCount rows of dim width each to path, in the
// header-then-payload shape Open expects. rows must have length
// rowCount*dim.
func WriteFixedFile[T Row](path string, dim int, rows []T) (err error) {
	if len(rows)%dim != 0 {
		return fmt.Errorf("vecstore: row slice length %d not a multiple of dim %d", len(rows), dim)
	}
	rowCount := len(rows) / dim

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vecstore: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(rowCount))
	if _, err = f.Write(header[:]); err != nil {
		return fmt.Errorf("vecstore: write header: %w", err)
	}

	var payload []byte
	switch v := any(rows).(type) {
	case []float32:
		payload = memlayout.Float32ToBytes(v)
	case []byte:
		payload = v
	default:
		return fmt.Errorf("vecstore: unsupported row type")
	}
	if _, err = f.Write(payload); err != nil {
		return fmt.Errorf("vecstore: write payload: %w", err)
	}
	return nil
}
