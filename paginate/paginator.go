// Package paginate converts normalized chapter text into discrete
// screen-sized pages honoring line-breaking rules and title reservation.
package paginate

import (
	"strings"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/typeset"
)

// PageData is the pagination result for one chapter. Replaced wholesale, not
// mutated, whenever viewport or typography change.
type PageData struct {
	ChapterID   string
	ChapterName string

	// Content is the normalized text the pages were cut from. Concatenating
	// Pages and stripping line breaks reproduces it exactly - no characters
	// are dropped or duplicated.
	Content string
	Pages   []string

	IsFirstChapterOfBook bool
	IsLastChapterOfBook  bool

	// HasLeadingDetailPage is true iff this chapter is the book's first -
	// the virtual page sequence places the detail page right before it.
	HasLeadingDetailPage bool
	BookInfo             *book.BookInfo
}

func (p *PageData) PageCount() int {
	return len(p.Pages)
}

func (p *PageData) IsFirstPage(i int) bool {
	return i == 0
}

func (p *PageData) IsLastPage(i int) bool {
	return i == len(p.Pages)-1
}

// Layout holds the fixed pixel paddings and chrome reservations subtracted
// from the viewport before measuring.
type Layout struct {
	HorizontalPadding int
	VerticalPadding   int
	ChromeTop         int
	ChromeBottom      int
	TitleBottomMargin int
}

func DefaultLayout() Layout {
	return Layout{
		HorizontalPadding: 16,
		VerticalPadding:   20,
		ChromeTop:         44,
		ChromeBottom:      48,
		TitleBottomMargin: 24,
	}
}

// titleFontDelta and titleLineFactor size the reserved title block on the
// first page of the book's first chapter.
const (
	titleFontDelta  = 4
	titleLineFactor = 1.5
)

// Paginator is a pure computation - for a fixed input it always produces an
// identical page sequence. Safe for concurrent use.
type Paginator struct {
	measurer *typeset.Measurer
	layout   Layout
}

func NewPaginator(layout Layout) *Paginator {
	return &Paginator{
		measurer: typeset.NewMeasurer(),
		layout:   layout,
	}
}

// Paginate splits chapter content into pages for the given viewport and
// typography. Degenerate input (blank content, non-positive viewport, a
// viewport smaller than a single line) fails soft: the whole content becomes
// one page instead of surfacing an error.
func (p *Paginator) Paginate(chapter book.Chapter, rawContent string, vp book.Viewport, typo book.Typography, isFirstChapter, isLastChapter bool) *PageData {
	content := NormalizeContent(rawContent)

	pd := &PageData{
		ChapterID:            chapter.ID,
		ChapterName:          chapter.DisplayName,
		Content:              content,
		IsFirstChapterOfBook: isFirstChapter,
		IsLastChapterOfBook:  isLastChapter,
		HasLeadingDetailPage: isFirstChapter,
	}

	if len(content) == 0 || !vp.Valid() {
		pd.Pages = []string{content}
		return pd
	}

	met := p.measurer.MetricsFor(typo.FontSize)
	usableWidth := float64(vp.Width - 2*p.layout.HorizontalPadding)
	usableHeight := float64(vp.Height - 2*p.layout.VerticalPadding - p.layout.ChromeTop - p.layout.ChromeBottom)
	if usableWidth < met.AvgCharWidth || usableHeight < met.LineHeight {
		pd.Pages = []string{content}
		return pd
	}

	linesPerPage := int(usableHeight / met.LineHeight)
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	// The first page of the book's first chapter reserves room for the title
	// block and fits strictly fewer lines than subsequent pages.
	firstPageMaxLines := linesPerPage
	if isFirstChapter {
		titleBlock := titleLineFactor*float64(typo.FontSize+titleFontDelta) + float64(p.layout.TitleBottomMargin)
		firstPageMaxLines = int((usableHeight - titleBlock) / met.LineHeight)
		if firstPageMaxLines >= linesPerPage {
			firstPageMaxLines = linesPerPage - 1
		}
		if firstPageMaxLines < 1 {
			firstPageMaxLines = 1
		}
	}

	var (
		pages []string
		buf   []string
		limit = firstPageMaxLines
	)
	// Sub-lines are joined untouched: normalization already removed trailing
	// whitespace per logical line, and a sub-line ending in an interior space
	// must keep it or the content round trip loses characters.
	flush := func() {
		pages = append(pages, strings.Join(buf, "\n"))
		buf = buf[:0]
		limit = linesPerPage
	}

	for _, line := range strings.Split(content, "\n") {
		for _, sub := range typeset.BreakLine(line, usableWidth, met.AvgCharWidth) {
			buf = append(buf, sub)
			if len(buf) >= limit {
				flush()
			}
		}
	}
	// trailing partial page is always flushed, never dropped
	if len(buf) > 0 {
		flush()
	}

	if len(pages) == 0 {
		pages = []string{content}
	}
	pd.Pages = pages
	return pd
}
