package spanndb

import (
	"time"

	"github.com/xDarkicex/spanndb/internal/idscore"
)

// SearchResults is the complete response from a Collection search
// call: the ordered (id, score) matches plus how long the call took,
// in the teacher's SearchResults shape (libravdb/types.go), trimmed
// of the metadata/vector echo fields this module's results don't
// carry (ids and scores only — see spec.md §3's result shape).
type SearchResults struct {
	Results []idscore.IdWithScore
	Took    time.Duration
}
