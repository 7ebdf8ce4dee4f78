package ivf

import "errors"

// Sentinel errors for the IVF package, grouped by category in the
// teacher's libravdb/errors.go style (plain errors.New vars rather
// than a generic error struct).
var (
	// ErrConfigInvalid is returned by Config.Validate for an
	// out-of-range or missing required option.
	ErrConfigInvalid = errors.New("ivf: invalid configuration")

	// ErrIndexCorrupt signals header/offset/directory inconsistency
	// detected while opening a segment for reading.
	ErrIndexCorrupt = errors.New("ivf: index file corrupt")

	// ErrBuildFailed signals a k-means or quantizer training error, or a
	// posting list still over 3x the cap once the split loop has used
	// its rounds. A k-means run that reaches its iteration limit without
	// meeting its tolerance is not an error: its last centroids are used.
	ErrBuildFailed = errors.New("ivf: build failed")
)
