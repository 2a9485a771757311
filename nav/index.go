package nav

import (
	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

// Index is the ordered VirtualPage sequence built from the resident chapter
// set, plus the reverse mapping from stable page identity to linear position.
// It is immutable once built; the resident set changing means a rebuild.
type Index struct {
	pages []VirtualPage
	pos   map[VirtualPage]int
}

// BuildIndex produces the sequence for the resident pagination snapshot in
// chapter order. The detail page leads iff the book's first chapter is
// resident and carries one; in scroll mode each chapter contributes a single
// section instead of per-page entries. Building twice from the same snapshot
// yields identical sequences.
func BuildIndex(snapshot map[string]*paginate.PageData, order []book.Chapter, scroll bool) (*Index, error) {
	known := make(map[string]struct{}, len(order))
	for _, ch := range order {
		known[ch.ID] = struct{}{}
	}
	for id := range snapshot {
		if _, ok := known[id]; !ok {
			return nil, &book.CacheInconsistencyError{ChapterID: id, Reason: "resident chapter missing from chapter list"}
		}
	}

	idx := &Index{pos: make(map[VirtualPage]int)}
	for i, ch := range order {
		pd, ok := snapshot[ch.ID]
		if !ok {
			continue
		}
		if pd.ChapterID != ch.ID {
			return nil, &book.CacheInconsistencyError{ChapterID: ch.ID, Reason: "pagination keyed under the wrong chapter"}
		}
		if pd.PageCount() == 0 {
			return nil, &book.CacheInconsistencyError{ChapterID: ch.ID, Reason: "resident chapter has empty pagination"}
		}
		if i == 0 && pd.HasLeadingDetailPage {
			idx.append(BookDetailPage{})
		}
		if scroll {
			idx.append(ChapterSection{ChapterID: ch.ID})
			continue
		}
		for p := 0; p < pd.PageCount(); p++ {
			idx.append(ContentPage{ChapterID: ch.ID, PageIndex: p})
		}
	}
	return idx, nil
}

func (x *Index) append(p VirtualPage) {
	x.pos[p] = len(x.pages)
	x.pages = append(x.pages, p)
}

func (x *Index) Len() int {
	return len(x.pages)
}

// At returns the page at linear position i.
func (x *Index) At(i int) (VirtualPage, bool) {
	if i < 0 || i >= len(x.pages) {
		return nil, false
	}
	return x.pages[i], true
}

// IndexOf maps a stable page identity back to its linear position in this
// build. This is what re-anchors the reading position after the resident set
// changes.
func (x *Index) IndexOf(p VirtualPage) (int, bool) {
	i, ok := x.pos[p]
	return i, ok
}

// FirstOfChapter returns the linear position of the chapter's first page (or
// its section in scroll mode).
func (x *Index) FirstOfChapter(chapterID string) (int, bool) {
	if i, ok := x.pos[ChapterSection{ChapterID: chapterID}]; ok {
		return i, true
	}
	i, ok := x.pos[ContentPage{ChapterID: chapterID, PageIndex: 0}]
	return i, ok
}

// LastOfChapter returns the linear position of the chapter's last page.
func (x *Index) LastOfChapter(chapterID string) (int, bool) {
	if i, ok := x.pos[ChapterSection{ChapterID: chapterID}]; ok {
		return i, true
	}
	first, ok := x.pos[ContentPage{ChapterID: chapterID, PageIndex: 0}]
	if !ok {
		return 0, false
	}
	last := first
	for p := 1; ; p++ {
		i, ok := x.pos[ContentPage{ChapterID: chapterID, PageIndex: p}]
		if !ok {
			return last, true
		}
		last = i
	}
}
