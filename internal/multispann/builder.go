package multispann

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xDarkicex/spanndb/internal/codec"
	"github.com/xDarkicex/spanndb/internal/hnsw"
	"github.com/xDarkicex/spanndb/internal/ivf"
	"github.com/xDarkicex/spanndb/internal/obs"
	"github.com/xDarkicex/spanndb/internal/spann"
)

// UserInput pairs a user id with the build-time data source for their
// individual SPANN index.
type UserInput struct {
	UserID uint64
	Input  ivf.Input
}

// Build constructs one SPANN index per entry in users, writes each to
// its own slot inside dir, and writes the user_index_info hash table
// mapping every user id to its slot. Every user's SPANN index shares
// the same IVF/HNSW configuration and distance kernel, matching a
// single Multi-SPANN segment's one quantizer-type/feature-dimension
// contract from spec.md §4.6's collection_config. metrics may be nil.
func Build(ctx context.Context, dir string, ivfCfg ivf.Config, hnswCfg hnsw.Config, codecType codec.Type, distance func(a, b []float32) float32, users []UserInput, metrics *obs.Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("multispann: mkdir %s: %w", dir, err)
	}

	entries := make(map[UserID]Offsets, len(users))

	for slot, u := range users {
		builder, err := spann.NewBuilder(ivfCfg, hnswCfg, distance)
		if err != nil {
			return fmt.Errorf("multispann: user %d: %w", u.UserID, err)
		}
		result, err := builder.Build(ctx, u.Input)
		if err != nil {
			return fmt.Errorf("multispann: building user %d: %w", u.UserID, err)
		}

		slotStr := strconv.Itoa(slot)
		layout := spann.Layout{
			CentroidsPath: filepath.Join(dir, "centroids", slotStr),
			IVFDir:        filepath.Join(dir, "ivf", slotStr),
		}
		if err := spann.Write(layout, result, codecType, metrics); err != nil {
			return fmt.Errorf("multispann: writing user %d: %w", u.UserID, err)
		}

		off := uint64(slot)
		entries[NewUserID(u.UserID)] = Offsets{
			CentroidIndexOffset:  off,
			CentroidVectorOffset: off,
			IVFIndexOffset:       off,
			IVFVectorsOffset:     off,
		}
	}

	if err := WriteHashTable(filepath.Join(dir, "user_index_info"), entries); err != nil {
		return fmt.Errorf("multispann: writing user_index_info: %w", err)
	}
	return nil
}
