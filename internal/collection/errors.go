package collection

import "errors"

var (
	// ErrConfigInvalid marks a missing or out-of-range collection_config.json field.
	ErrConfigInvalid = errors.New("collection: invalid configuration")
	// ErrIndexCorrupt marks a malformed config or TOC file.
	ErrIndexCorrupt = errors.New("collection: corrupt on-disk state")
	// ErrNoVersions marks a collection directory with no version_N file yet.
	ErrNoVersions = errors.New("collection: no versions present")
)
