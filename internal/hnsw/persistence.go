package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"github.com/xDarkicex/spanndb/internal/memlayout"
)

// indexFileMagic identifies an HNSW centroid-navigator file on disk,
// adapted from the teacher's IndexFileHeader/format.go layout but
// trimmed to what a minimal centroid-only navigator needs: no
// metadata, no string ids, no quantization section.
const (
	indexFileMagic  = "HNSWCIDX"
	formatVersion   = uint32(1)
	headerByteCount = 8 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 8 + 4 // magic,version,nodeCount,dim,maxLevel,entry,M,efc,ml,crc
)

// Write serializes the graph to path: header, then per-node vector
// data, then per-node per-level adjacency lists.
func (h *Index) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hnsw: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	body := make([]byte, 0, 1024)
	body = appendU32(body, uint32(len(h.nodes)))
	for _, n := range h.nodes {
		body = appendU32(body, uint32(n.level))
		body = append(body, memlayout.Float32ToBytes(n.vector)...)
		body = appendU32(body, uint32(len(n.links)))
		for _, level := range n.links {
			body = appendU32(body, uint32(len(level)))
			for _, id := range level {
				body = appendU32(body, id)
			}
		}
	}

	header := make([]byte, 0, headerByteCount)
	header = append(header, []byte(indexFileMagic)...)
	header = appendU32(header, formatVersion)
	header = appendU32(header, uint32(len(h.nodes)))
	header = appendU32(header, uint32(h.config.Dimension))
	header = appendU32(header, uint32(h.maxLevel))
	header = appendU32(header, h.entryPoint)
	header = appendU32(header, uint32(h.config.M))
	header = appendU32(header, uint32(h.config.EfConstruction))
	header = append(header, float64Bytes(h.config.ML)...)
	header = appendU32(header, crc32.ChecksumIEEE(body))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("hnsw: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("hnsw: write body: %w", err)
	}
	return w.Flush()
}

// Open reads back a graph written by Write, using distance for
// subsequent Search calls (the distance kernel itself is not
// persisted, matching how ivf.Reader is handed a kernel at Open time).
func Open(path string, distance func(a, b []float32) float32) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hnsw: read %s: %w", path, err)
	}
	if len(data) < headerByteCount || string(data[:8]) != indexFileMagic {
		return nil, fmt.Errorf("hnsw: %s is not a valid index file", path)
	}

	pos := 8
	version := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	if version != formatVersion {
		return nil, fmt.Errorf("hnsw: unsupported format version %d", version)
	}
	nodeCount := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	dimension := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	maxLevel := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	entryPoint := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	m := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	efConstruction := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	ml := bytesFloat64(data[pos:])
	pos += 8
	wantCRC := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	body := data[pos:]
	if gotCRC := crc32.ChecksumIEEE(body); gotCRC != wantCRC {
		return nil, fmt.Errorf("hnsw: checksum mismatch in %s", path)
	}

	cfg := &Config{Dimension: int(dimension), M: int(m), EfConstruction: int(efConstruction), ML: ml, RandomSeed: 1}
	idx, err := NewIndex(cfg, distance)
	if err != nil {
		return nil, fmt.Errorf("hnsw: reconstructing config: %w", err)
	}
	idx.maxLevel = int(maxLevel)
	idx.entryPoint = entryPoint

	r := body
	gotNodeCount := binary.LittleEndian.Uint32(r)
	r = r[4:]
	if gotNodeCount != nodeCount {
		return nil, fmt.Errorf("hnsw: node count mismatch in %s", path)
	}

	idx.nodes = make([]*node, nodeCount)
	for i := uint32(0); i < nodeCount; i++ {
		level := binary.LittleEndian.Uint32(r)
		r = r[4:]
		vecBytes := int(dimension) * 4
		vector := append([]float32(nil), memlayout.ReinterpretFloat32(r[:vecBytes])...)
		r = r[vecBytes:]

		numLevels := binary.LittleEndian.Uint32(r)
		r = r[4:]
		links := make([][]uint32, numLevels)
		for lvl := uint32(0); lvl < numLevels; lvl++ {
			linkCount := binary.LittleEndian.Uint32(r)
			r = r[4:]
			levelLinks := make([]uint32, linkCount)
			for j := uint32(0); j < linkCount; j++ {
				levelLinks[j] = binary.LittleEndian.Uint32(r)
				r = r[4:]
			}
			links[lvl] = levelLinks
		}

		idx.nodes[i] = &node{vector: vector, level: int(level), links: links}
	}

	return idx, nil
}

func appendU32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func float64Bytes(v float64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return buf[:]
}

func bytesFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
