// Package memlayout provides the mmap-backed byte-slice primitive and the
// unsafe reinterpret-cast helpers used by every fixed-file on-disk format
// in this module. Adapted from the teacher's internal/memory mmap wrapper,
// trimmed to the read-only, open-once-and-slice usage pattern that
// segment readers need (no resizing, no write-back).
package memlayout

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Mapping is a read-only memory mapping of a file, kept open for the
// lifetime of the segment snapshot that owns it.
type Mapping struct {
	file *os.File
	data []byte
}

// OpenReadOnly mmaps the whole of path for reading.
func OpenReadOnly(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memlayout: open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("memlayout: stat %s: %w", path, err)
	}
	size := stat.Size()
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("memlayout: cannot map empty file %s", path)
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("memlayout: mmap %s: %w", path, err)
	}

	return &Mapping{file: f, data: data}, nil
}

// Bytes returns the whole mapped region. Callers must not retain slices
// derived from it past Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Close unmaps the region and closes the backing file descriptor.
func (m *Mapping) Close() error {
	var err error
	if m.data != nil {
		if uerr := syscall.Munmap(m.data); uerr != nil {
			err = fmt.Errorf("memlayout: munmap: %w", uerr)
		}
		m.data = nil
	}
	if m.file != nil {
		if cerr := m.file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("memlayout: close: %w", cerr)
		}
		m.file = nil
	}
	return err
}

// ReinterpretFloat32 casts a byte slice to a []float32 view without
// copying. b's length must be a multiple of 4; the returned slice aliases
// b's backing array.
func ReinterpretFloat32(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// ReinterpretUint64 casts a byte slice to a []uint64 view without copying.
func ReinterpretUint64(b []byte) []uint64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// Float32ToBytes views a []float32 as its raw little-endian byte
// representation without copying, for writing to disk. Only valid on
// little-endian architectures, which is the only target this module
// supports (matches the on-disk format's documented little-endian layout).
func Float32ToBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// Uint64ToBytes views a []uint64 as its raw little-endian byte
// representation without copying.
func Uint64ToBytes(v []uint64) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}
