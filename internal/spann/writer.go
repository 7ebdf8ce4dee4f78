package spann

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/obs"
)

// Write serializes result to the files named by layout: the HNSW
// navigator under centroids/, the IVF segment under ivf/. metrics may
// be nil and is forwarded to the IVF writer.
func Write(layout Layout, result *BuildResult, codecType codec.Type, metrics *obs.Metrics) error {
	if err := os.MkdirAll(filepath.Dir(layout.CentroidsPath), 0o755); err != nil {
		return fmt.Errorf("spann: mkdir: %w", err)
	}
	if err := result.Navigator.Write(layout.CentroidsPath); err != nil {
		return fmt.Errorf("spann: writing centroid navigator: %w", err)
	}

	if err := ivf.Write(ivf.LayoutIn(layout.IVFDir), result.IVF, codecType, metrics); err != nil {
		return fmt.Errorf("spann: writing ivf segment: %w", err)
	}
	return nil
}
