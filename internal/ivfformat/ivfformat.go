// Package ivfformat defines the on-disk layout of a single IVF segment
// file: a fixed header, a doc-id mapping section, a centroids section,
// and a posting-list directory followed by the posting-list payload
// region. The layout mirrors the original Rust implementation's
// version/num_features/num_clusters/num_vectors/section-length header
// fields, 8-byte aligned, with one reserved byte repurposed to carry
// the posting-list codec tag (internal/codec.Type) since every posting
// list in a segment shares one codec chosen at build time.
package ivfformat

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/memlayout"
)

// FormatVersion is the on-disk layout version this package reads and
// writes. Bump and branch on Header.Version if the layout ever changes.
const FormatVersion uint8 = 1

// HeaderSize is the fixed byte length of Header as written to disk.
const HeaderSize = 48

// Header is the fixed-size preamble of an IVF segment file.
type Header struct {
	Version          uint8
	CodecType        codec.Type
	NumFeatures      uint32
	NumClusters      uint32
	NumVectors       uint64
	DocIDMappingLen  uint64 // byte length of the doc-id mapping section
	CentroidsLen     uint64 // byte length of the centroids section
	PostingListsLen  uint64 // byte length of the posting-list directory + payload
}

func (h Header) encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	buf[0] = h.Version
	buf[1] = byte(h.CodecType)
	// buf[2:4] reserved, left zero.
	binary.LittleEndian.PutUint32(buf[4:8], h.NumFeatures)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumClusters)
	// buf[12:16] reserved, left zero.
	binary.LittleEndian.PutUint64(buf[16:24], h.NumVectors)
	binary.LittleEndian.PutUint64(buf[24:32], h.DocIDMappingLen)
	binary.LittleEndian.PutUint64(buf[32:40], h.CentroidsLen)
	binary.LittleEndian.PutUint64(buf[40:48], h.PostingListsLen)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("ivfformat: header too short (%d bytes)", len(buf))
	}
	h := Header{
		Version:         buf[0],
		CodecType:       codec.Type(buf[1]),
		NumFeatures:     binary.LittleEndian.Uint32(buf[4:8]),
		NumClusters:     binary.LittleEndian.Uint32(buf[8:12]),
		NumVectors:      binary.LittleEndian.Uint64(buf[16:24]),
		DocIDMappingLen: binary.LittleEndian.Uint64(buf[24:32]),
		CentroidsLen:    binary.LittleEndian.Uint64(buf[32:40]),
		PostingListsLen: binary.LittleEndian.Uint64(buf[40:48]),
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("ivfformat: unsupported version %d (want %d)", h.Version, FormatVersion)
	}
	return h, nil
}

// directoryEntry is one slot in the posting-list directory: the byte
// length of the encoded posting list and its offset relative to the
// start of the payload region (not the start of the file).
type directoryEntry struct {
	ByteLen uint64
	Offset  uint64
}

const directoryEntrySize = 16

// Writer serializes a segment's sections in order: header, doc-id
// mapping, centroids, posting-list directory, posting-list payloads.
type Writer struct {
	f    *os.File
	hdr  Header
	path string
}

// Create opens path for writing and reserves space for the header,
// which is patched in by Close once every section's length is known.
func Create(path string, numFeatures, numClusters uint32, codecType codec.Type) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ivfformat: create %s: %w", path, err)
	}
	w := &Writer{
		f: f,
		hdr: Header{
			Version:     FormatVersion,
			CodecType:   codecType,
			NumFeatures: numFeatures,
			NumClusters: numClusters,
		},
		path: path,
	}
	var zero [HeaderSize]byte
	if _, err := f.Write(zero[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("ivfformat: reserve header: %w", err)
	}
	return w, nil
}

// WriteDocIDMapping writes the local-index -> external-doc-id mapping
// as a raw little-endian u64 array.
func (w *Writer) WriteDocIDMapping(docIDs []uint64) error {
	buf := memlayout.Uint64ToBytes(docIDs)
	n, err := w.f.Write(buf)
	w.hdr.DocIDMappingLen = uint64(n)
	w.hdr.NumVectors = uint64(len(docIDs))
	return err
}

// WriteCentroids writes the cluster centroids as a raw little-endian
// float32 array, numClusters*numFeatures elements.
func (w *Writer) WriteCentroids(centroids []float32) error {
	buf := memlayout.Float32ToBytes(centroids)
	n, err := w.f.Write(buf)
	w.hdr.CentroidsLen = uint64(n)
	return err
}

// WritePostingLists writes the directory followed by each posting
// list's already-encoded bytes, in cluster-index order.
func (w *Writer) WritePostingLists(encoded [][]byte) error {
	dir := make([]directoryEntry, len(encoded))
	var offset uint64
	for i, payload := range encoded {
		dir[i] = directoryEntry{ByteLen: uint64(len(payload)), Offset: offset}
		offset += uint64(len(payload))
	}

	total := int64(0)
	for _, e := range dir {
		var entryBuf [directoryEntrySize]byte
		binary.LittleEndian.PutUint64(entryBuf[0:8], e.ByteLen)
		binary.LittleEndian.PutUint64(entryBuf[8:16], e.Offset)
		n, err := w.f.Write(entryBuf[:])
		total += int64(n)
		if err != nil {
			return fmt.Errorf("ivfformat: write directory entry: %w", err)
		}
	}
	for _, payload := range encoded {
		n, err := w.f.Write(payload)
		total += int64(n)
		if err != nil {
			return fmt.Errorf("ivfformat: write posting list payload: %w", err)
		}
	}
	w.hdr.PostingListsLen = uint64(total)
	return nil
}

// Close patches the header in with final section lengths and closes
// the file.
func (w *Writer) Close() error {
	hdr := w.hdr.encode()
	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		w.f.Close()
		return fmt.Errorf("ivfformat: patch header: %w", err)
	}
	return w.f.Close()
}

// Reader gives mmap-backed random access to a segment file written by
// Writer.
type Reader struct {
	mapping  *memlayout.Mapping
	header   Header
	docIDs   []uint64
	centroids []float32
	dirStart int
	dir      []directoryEntry
	payload  []byte
}

// Open mmaps path and parses its header and posting-list directory.
func Open(path string) (*Reader, error) {
	m, err := memlayout.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	data := m.Bytes()
	hdr, err := decodeHeader(data)
	if err != nil {
		m.Close()
		return nil, err
	}

	off := HeaderSize
	docIDMappingEnd := off + int(hdr.DocIDMappingLen)
	if docIDMappingEnd > len(data) {
		m.Close()
		return nil, fmt.Errorf("ivfformat: doc-id mapping section truncated")
	}
	docIDs := memlayout.ReinterpretUint64(data[off:docIDMappingEnd])

	off = docIDMappingEnd
	centroidsEnd := off + int(hdr.CentroidsLen)
	if centroidsEnd > len(data) {
		m.Close()
		return nil, fmt.Errorf("ivfformat: centroids section truncated")
	}
	centroids := memlayout.ReinterpretFloat32(data[off:centroidsEnd])

	off = centroidsEnd
	dirBytes := int(hdr.NumClusters) * directoryEntrySize
	dirEnd := off + dirBytes
	if dirEnd > len(data) {
		m.Close()
		return nil, fmt.Errorf("ivfformat: posting-list directory truncated")
	}
	dir := make([]directoryEntry, hdr.NumClusters)
	for i := range dir {
		entry := data[off+i*directoryEntrySize : off+(i+1)*directoryEntrySize]
		dir[i] = directoryEntry{
			ByteLen: binary.LittleEndian.Uint64(entry[0:8]),
			Offset:  binary.LittleEndian.Uint64(entry[8:16]),
		}
	}
	payload := data[dirEnd:]

	return &Reader{
		mapping:   m,
		header:    hdr,
		docIDs:    docIDs,
		centroids: centroids,
		dir:       dir,
		payload:   payload,
	}, nil
}

// Header returns the parsed segment header.
func (r *Reader) Header() Header { return r.header }

// NumClusters returns the number of clusters (and centroids, and
// posting lists) in this segment.
func (r *Reader) NumClusters() int { return int(r.header.NumClusters) }

// Centroid returns the clusterIdx-th centroid as a zero-copy slice of
// length NumFeatures.
func (r *Reader) Centroid(clusterIdx int) ([]float32, error) {
	if clusterIdx < 0 || clusterIdx >= int(r.header.NumClusters) {
		return nil, fmt.Errorf("ivfformat: cluster %d out of bounds (have %d)", clusterIdx, r.header.NumClusters)
	}
	dim := int(r.header.NumFeatures)
	start := clusterIdx * dim
	if start+dim > len(r.centroids) {
		return nil, fmt.Errorf("ivfformat: centroid section too short for cluster %d", clusterIdx)
	}
	return r.centroids[start : start+dim], nil
}

// DocID returns the external document id for local row index i.
func (r *Reader) DocID(i int) (uint64, error) {
	if i < 0 || i >= len(r.docIDs) {
		return 0, fmt.Errorf("ivfformat: local row %d out of bounds (have %d)", i, len(r.docIDs))
	}
	return r.docIDs[i], nil
}

// PostingList decodes and returns the local row indices assigned to
// clusterIdx, using the segment's declared codec.
func (r *Reader) PostingList(clusterIdx int) (codec.Decoder, error) {
	if clusterIdx < 0 || clusterIdx >= len(r.dir) {
		return nil, fmt.Errorf("ivfformat: cluster %d out of bounds (have %d)", clusterIdx, len(r.dir))
	}
	e := r.dir[clusterIdx]
	if e.Offset+e.ByteLen > uint64(len(r.payload)) {
		return nil, fmt.Errorf("ivfformat: posting list %d payload out of bounds", clusterIdx)
	}
	raw := r.payload[e.Offset : e.Offset+e.ByteLen]
	return codec.NewDecoder(r.header.CodecType, raw)
}

// Close unmaps the backing file.
func (r *Reader) Close() error {
	if r.mapping == nil {
		return nil
	}
	err := r.mapping.Close()
	r.mapping = nil
	return err
}

var _ io.Closer = (*Reader)(nil)
