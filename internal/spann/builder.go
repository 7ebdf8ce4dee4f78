package spann

import (
	"context"
	"fmt"

	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/ivf"
)

// BuildResult bundles the IVF build artifacts with the HNSW graph
// built over their centroids.
type BuildResult struct {
	IVF       *ivf.BuildResult
	Navigator *hnsw.Index
}

// Builder runs the two-stage SPANN build: IVF clustering first, then
// an HNSW graph fed the resulting centroids in order (identity
// local_id -> centroid_id), per spec.md §4.4.
type Builder struct {
	ivfBuilder  *ivf.Builder
	hnswConfig  hnsw.Config
	distance    func(a, b []float32) float32
}

// NewBuilder wires an ivf.Builder and the HNSW parameters used to
// index its centroids.
func NewBuilder(ivfCfg ivf.Config, hnswCfg hnsw.Config, distance func(a, b []float32) float32) (*Builder, error) {
	ivfBuilder, err := ivf.NewBuilder(ivfCfg, distance)
	if err != nil {
		return nil, err
	}
	hnswCfg.Dimension = ivfCfg.NumFeatures
	return &Builder{ivfBuilder: ivfBuilder, hnswConfig: hnswCfg, distance: distance}, nil
}

// Build runs the IVF pipeline over input, then indexes the resulting
// centroids with an HNSW navigator.
func (b *Builder) Build(ctx context.Context, input ivf.Input) (*BuildResult, error) {
	ivfResult, err := b.ivfBuilder.Build(ctx, input)
	if err != nil {
		return nil, err
	}

	navBuilder := hnsw.NewBuilder(b.hnswConfig, b.distance)
	navigator, err := navBuilder.Build(ivfResult.Centroids)
	if err != nil {
		return nil, fmt.Errorf("spann: building centroid navigator: %w", err)
	}

	return &BuildResult{IVF: ivfResult, Navigator: navigator}, nil
}
