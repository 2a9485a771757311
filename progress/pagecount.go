// Package progress computes global, whole-book page numbering: a background
// engine paginates every chapter to build an invalidatable page-count index,
// and the index answers progress and seek queries.
package progress

import (
	"fmt"
	"sort"

	"github.com/xxMudCloudxx/Novel-sub000/book"
)

// ChapterRange maps one chapter onto the global page axis.
type ChapterRange struct {
	ChapterID string
	StartPage int
	PageCount int
}

// PageCountCache is the immutable result of a whole-book pagination run,
// keyed by the font size and viewport it was computed for. Ranges are
// contiguous and non-overlapping, and their page counts sum to TotalPages.
type PageCountCache struct {
	TotalPages int
	Ranges     []ChapterRange
	FontSize   int
	Viewport   book.Viewport
}

// ValidFor reports whether the cache was computed for the given viewport and
// typography. A mismatch on either axis means the whole cache is stale.
func (c *PageCountCache) ValidFor(vp book.Viewport, typo book.Typography) bool {
	return c != nil && c.FontSize == typo.FontSize && c.Viewport == vp
}

// Locate finds the chapter range containing globalPage and the page's index
// relative to that chapter's start.
func (c *PageCountCache) Locate(globalPage int) (ChapterRange, int, error) {
	if c == nil || len(c.Ranges) == 0 || c.TotalPages == 0 {
		return ChapterRange{}, 0, book.ErrNoPageCount
	}
	if globalPage < 0 || globalPage >= c.TotalPages {
		return ChapterRange{}, 0, fmt.Errorf("global page %d outside [0,%d): %w", globalPage, c.TotalPages, book.ErrOutOfBounds)
	}
	i := sort.Search(len(c.Ranges), func(i int) bool {
		return c.Ranges[i].StartPage+c.Ranges[i].PageCount > globalPage
	})
	r := c.Ranges[i]
	return r, globalPage - r.StartPage, nil
}

// LocateFraction resolves a progress fraction in [0,1] to a chapter range and
// relative page, clamping out-of-range input to the book edges.
func (c *PageCountCache) LocateFraction(p float64) (ChapterRange, int, error) {
	if c == nil || c.TotalPages == 0 {
		return ChapterRange{}, 0, book.ErrNoPageCount
	}
	global := int(p * float64(c.TotalPages))
	if global < 0 {
		global = 0
	}
	if global >= c.TotalPages {
		global = c.TotalPages - 1
	}
	return c.Locate(global)
}

// GlobalProgress converts a chapter-relative position into a fraction of the
// whole book. The page being read counts as complete, so the last page of the
// last chapter reports 1.0.
func (c *PageCountCache) GlobalProgress(chapterID string, pageIndex int) (float64, error) {
	if c == nil || c.TotalPages == 0 {
		return 0, book.ErrNoPageCount
	}
	for _, r := range c.Ranges {
		if r.ChapterID != chapterID {
			continue
		}
		if pageIndex < 0 {
			pageIndex = 0
		}
		if pageIndex >= r.PageCount {
			pageIndex = r.PageCount - 1
		}
		return float64(r.StartPage+pageIndex+1) / float64(c.TotalPages), nil
	}
	return 0, fmt.Errorf("chapter %s not in page count index: %w", chapterID, book.ErrOutOfBounds)
}
