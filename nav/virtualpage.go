// Package nav unifies detail page, content pages and scroll-mode chapter
// sections into one addressable sequence and drives navigation transitions
// against it.
package nav

// VirtualPage is one addressable unit of the navigation sequence. All
// implementations are comparable value types so a page identity can key a
// map and survive index rebuilds.
type VirtualPage interface {
	isVirtualPage()
}

// BookDetailPage is the book's cover/metadata page. At most one exists and it
// is always first in the sequence.
type BookDetailPage struct{}

// ContentPage is one rendered page of a chapter.
type ContentPage struct {
	ChapterID string
	PageIndex int
}

// ChapterSection replaces a chapter's individual pages in continuous-scroll
// mode.
type ChapterSection struct {
	ChapterID string
}

func (BookDetailPage) isVirtualPage() {}
func (ContentPage) isVirtualPage()    {}
func (ChapterSection) isVirtualPage() {}
