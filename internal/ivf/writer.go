package ivf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/ivfformat"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/vecstore"
)

// Layout is the set of paths one IVF segment occupies inside a
// directory, matching the collection/multi-SPANN directory convention
// (centroids+postings in one index file, vectors in a sibling file,
// quantizer state in its own subdirectory).
type Layout struct {
	IndexPath     string
	VectorsPath   string
	QuantizerDir  string
}

// LayoutIn returns the conventional Layout for a segment rooted at dir.
func LayoutIn(dir string) Layout {
	return Layout{
		IndexPath:    filepath.Join(dir, "ivf_index"),
		VectorsPath:  filepath.Join(dir, "ivf_vectors"),
		QuantizerDir: filepath.Join(dir, "quantizer"),
	}
}

// Write serializes result to the files named by layout, using
// codecType to encode every posting list. metrics may be nil.
func Write(layout Layout, result *BuildResult, codecType codec.Type, metrics *obs.Metrics) error {
	if err := os.MkdirAll(filepath.Dir(layout.IndexPath), 0o755); err != nil {
		return fmt.Errorf("ivf: mkdir: %w", err)
	}

	numClusters := len(result.Centroids)
	w, err := ivfformat.Create(layout.IndexPath, uint32(result.NumFeatures), uint32(numClusters), codecType)
	if err != nil {
		return fmt.Errorf("ivf: create index file: %w", err)
	}

	if err := w.WriteDocIDMapping(result.DocIDs); err != nil {
		w.Close()
		return fmt.Errorf("ivf: write doc-id mapping: %w", err)
	}

	flatCentroids := make([]float32, 0, numClusters*result.NumFeatures)
	for _, c := range result.Centroids {
		flatCentroids = append(flatCentroids, c...)
	}
	if err := w.WriteCentroids(flatCentroids); err != nil {
		w.Close()
		return fmt.Errorf("ivf: write centroids: %w", err)
	}

	encoded := make([][]byte, numClusters)
	for i, list := range result.PostingLists {
		enc, err := codec.NewEncoder(codecType, uint64(result.NumVectors), len(list))
		if err != nil {
			w.Close()
			return fmt.Errorf("ivf: posting list %d encoder: %w", i, err)
		}
		if err := enc.Encode(list); err != nil {
			w.Close()
			return fmt.Errorf("ivf: encoding posting list %d: %w", i, err)
		}
		buf := &bufferWriter{}
		if _, err := enc.WriteTo(buf); err != nil {
			w.Close()
			return fmt.Errorf("ivf: flushing posting list %d: %w", i, err)
		}
		encoded[i] = buf.b
		metrics.AddCodecBytesWritten(len(buf.b))
	}
	if err := w.WritePostingLists(encoded); err != nil {
		w.Close()
		return fmt.Errorf("ivf: write posting-list directory: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("ivf: close index file: %w", err)
	}

	quantizedDim := result.Quantizer.QuantizedDim()
	flatRows := make([]byte, 0, result.NumVectors*quantizedDim)
	for _, row := range result.QuantizedRows {
		flatRows = append(flatRows, row...)
	}
	if err := vecstore.WriteFixedFile(layout.VectorsPath, quantizedDim, flatRows); err != nil {
		return fmt.Errorf("ivf: write vector storage: %w", err)
	}

	if err := result.Quantizer.Write(layout.QuantizerDir); err != nil {
		return fmt.Errorf("ivf: write quantizer state: %w", err)
	}

	return nil
}

// bufferWriter is a minimal growable io.Writer, avoiding a bytes.Buffer
// import purely for WriteTo's sake in the hot build path.
type bufferWriter struct{ b []byte }

func (w *bufferWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
