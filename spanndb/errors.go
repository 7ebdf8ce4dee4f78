package spanndb

import "errors"

// Error taxonomy, per spec.md §7, rendered as sentinel values in the
// teacher's style (a flat var block of errors.New, looked up via
// errors.Is) rather than a generic error struct.
//
// UnknownUser (a multi-SPANN lookup miss) and EmptyResult (a valid
// zero-length match set) are deliberately absent here: spec.md §7
// classifies both as "not an error" — they surface as a bool (found)
// and an empty-but-non-nil slice respectively, never as a Go error
// value. IoFailed has no sentinel either; OS/mmap errors are surfaced
// as-is through %w wrapping at the call site that saw them.
var (
	// ErrConfigInvalid marks a missing or out-of-range configuration
	// value, detected at construction time.
	ErrConfigInvalid = errors.New("spanndb: invalid configuration")

	// ErrIndexCorrupt names on-disk state a reader cannot trust: a
	// header version mismatch, an offset out of range, a posting-list
	// directory inconsistency, or a truncated doc-id mapping. No function
	// of this package wraps it: such errors reach the caller wrapping the
	// internal packages' own corruption errors, so errors.Is against
	// ErrIndexCorrupt does not match them.
	ErrIndexCorrupt = errors.New("spanndb: corrupt on-disk index state")

	// ErrBuildFailed marks a segment build that BuildAndPublish could not
	// complete: k-means or quantizer training returned an error, or a
	// posting list stayed over 3x its cap after the split rounds. A
	// k-means run that stops at its iteration limit is not a failure.
	ErrBuildFailed = errors.New("spanndb: build failed")
)
