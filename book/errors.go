package book

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds marks a requested chapter or page that does not exist.
// Boundary conditions are not failures - callers treat this as a no-op.
var ErrOutOfBounds = errors.New("position out of book bounds")

// ErrNoPageCount is returned when global progress is requested before the
// whole-book pagination has produced a valid page count cache.
var ErrNoPageCount = errors.New("global page count not available yet")

// FetchError wraps a chapter or metadata fetch failure. Recoverable - the
// reader can retry the same transition.
type FetchError struct {
	ChapterID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("unable to fetch chapter %q: %v", e.ChapterID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CacheInconsistencyError marks an internal invariant violation, e.g. a
// virtual page referencing a chapter absent from the resident map. Fatal to
// the current navigation attempt, resolved by a full index rebuild.
type CacheInconsistencyError struct {
	ChapterID string
	Reason    string
}

func (e *CacheInconsistencyError) Error() string {
	return fmt.Sprintf("cache inconsistency for chapter %q: %s", e.ChapterID, e.Reason)
}
