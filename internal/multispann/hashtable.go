// Package multispann packs many per-user SPANN indexes into one
// segment directory, per spec.md §4.5. The on-disk user_index_info
// table is this module's own fixed-slot, open-addressing hash table —
// the corpus has no equivalent of the Rust original's immutable
// `odht::HashTableOwned`, so this is a from-scratch format (grounded
// in the same write-once/read-only mmap discipline as
// internal/ivfformat and internal/vecstore) rather than a borrowed
// library, as noted in SPEC_FULL.md §4.5.
package multispann

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/xDarkicex/spanndb/internal/memlayout"
)

// Offsets locates one user's SPANN blocks. spec.md defines these as
// byte offsets into four large shared files; this implementation's
// mmap readers (ivfformat.Open, vecstore.Open, hnsw.Open) are
// whole-file abstractions, so here all four fields carry the same
// opaque per-user slot number and the Writer materializes each user's
// blocks as their own files named by that slot — see DESIGN.md for
// the full rationale. The table's external contract (O(1) keyed
// lookup into four u64 fields) is preserved exactly.
type Offsets struct {
	CentroidIndexOffset  uint64
	CentroidVectorOffset uint64
	IVFIndexOffset       uint64
	IVFVectorsOffset     uint64
}

// UserID is the 16-byte (u128-equivalent) key spec.md's hash table is
// keyed by. NewUserID zero-extends a uint64, since the corpus offers
// no native 128-bit integer type.
type UserID [16]byte

func NewUserID(id uint64) UserID {
	var u UserID
	binary.BigEndian.PutUint64(u[8:], id)
	return u
}

const (
	hashTableMagic = "MSPNUIDX"
	slotSize       = 1 /*occupied*/ + 7 /*reserved*/ + 16 /*key*/ + 4*8 /*offsets*/
)

func slotHash(key UserID) uint64 {
	h := fnv.New64a()
	h.Write(key[:])
	return h.Sum64()
}

// BuildHashTable serializes entries into the slot array format Open
// reads back: an 8-byte magic, num_slots (u64), num_entries (u64),
// then num_slots fixed-size slots. Capacity is sized for a load factor
// of ~0.5 so linear probing stays short.
func BuildHashTable(entries map[UserID]Offsets) []byte {
	numSlots := nextPowerOfTwo(len(entries)*2 + 1)
	slots := make([]byte, numSlots*slotSize)

	occupied := make([]bool, numSlots)
	for key, off := range entries {
		idx := int(slotHash(key) % uint64(numSlots))
		for occupied[idx] {
			idx = (idx + 1) % numSlots
		}
		occupied[idx] = true
		writeSlot(slots[idx*slotSize:(idx+1)*slotSize], key, off)
	}

	header := make([]byte, 24)
	copy(header[:8], hashTableMagic)
	binary.LittleEndian.PutUint64(header[8:], uint64(numSlots))
	binary.LittleEndian.PutUint64(header[16:], uint64(len(entries)))

	return append(header, slots...)
}

func writeSlot(b []byte, key UserID, off Offsets) {
	b[0] = 1
	copy(b[8:24], key[:])
	binary.LittleEndian.PutUint64(b[24:32], off.CentroidIndexOffset)
	binary.LittleEndian.PutUint64(b[32:40], off.CentroidVectorOffset)
	binary.LittleEndian.PutUint64(b[40:48], off.IVFIndexOffset)
	binary.LittleEndian.PutUint64(b[48:56], off.IVFVectorsOffset)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// WriteHashTable writes entries to path in the BuildHashTable format.
func WriteHashTable(path string, entries map[UserID]Offsets) error {
	return os.WriteFile(path, BuildHashTable(entries), 0o644)
}

// HashTable is a memory-mapped, read-only view of a file written by
// WriteHashTable.
type HashTable struct {
	mapping  *memlayout.Mapping
	data     []byte
	numSlots int
}

// OpenHashTable mmaps path and validates its header.
func OpenHashTable(path string) (*HashTable, error) {
	mapping, err := memlayout.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("multispann: opening user_index_info: %w", err)
	}
	data := mapping.Bytes()
	if len(data) < 24 || string(data[:8]) != hashTableMagic {
		mapping.Close()
		return nil, fmt.Errorf("multispann: user_index_info has an invalid header")
	}
	numSlots := int(binary.LittleEndian.Uint64(data[8:]))
	if len(data) < 24+numSlots*slotSize {
		mapping.Close()
		return nil, fmt.Errorf("multispann: user_index_info is truncated")
	}
	return &HashTable{mapping: mapping, data: data, numSlots: numSlots}, nil
}

// Close unmaps the underlying file.
func (t *HashTable) Close() error { return t.mapping.Close() }

// Lookup probes for key, returning its Offsets and whether it was found.
func (t *HashTable) Lookup(key UserID) (Offsets, bool) {
	if t.numSlots == 0 {
		return Offsets{}, false
	}
	idx := int(slotHash(key) % uint64(t.numSlots))
	for i := 0; i < t.numSlots; i++ {
		slot := t.data[24+idx*slotSize : 24+(idx+1)*slotSize]
		if slot[0] == 0 {
			return Offsets{}, false
		}
		if UserID(slot[8:24]) == key {
			return Offsets{
				CentroidIndexOffset:  binary.LittleEndian.Uint64(slot[24:32]),
				CentroidVectorOffset: binary.LittleEndian.Uint64(slot[32:40]),
				IVFIndexOffset:       binary.LittleEndian.Uint64(slot[40:48]),
				IVFVectorsOffset:     binary.LittleEndian.Uint64(slot[48:56]),
			}, true
		}
		idx = (idx + 1) % t.numSlots
	}
	return Offsets{}, false
}
