package reader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/progress"
)

// outlineWriter accumulates an indented tree of lines, one level per depth.
type outlineWriter struct {
	w *strings.Builder
}

func newOutlineWriter() *outlineWriter {
	return &outlineWriter{
		w: &strings.Builder{},
	}
}

func (ow outlineWriter) String() string {
	return ow.w.String()
}

func (ow outlineWriter) Line(depth int, format string, args ...any) {
	for range depth {
		ow.w.WriteString("  ")
	}
	fmt.Fprintf(ow.w, format, args...)
	ow.w.WriteByte('\n')
}

func (ow outlineWriter) TextBlock(depth int, label, value string) {
	for range depth {
		ow.w.WriteString("  ")
	}
	ow.w.WriteString(label)
	ow.w.WriteString(": ")
	ow.w.WriteString(encodeText(value))
	ow.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

// renderTOC prints the book outline: title, author, then every chapter with
// its 1-based index. Page counts are shown when known, either from the
// resident cache or the finished global page count.
func renderTOC(info book.BookInfo, chapters []book.Chapter, store *cache.Store, counts *progress.PageCountCache) string {
	ow := newOutlineWriter()

	ow.Line(0, "%s", info.Title)
	if info.Author != "" {
		ow.TextBlock(1, "author", info.Author)
	}
	if counts != nil {
		ow.Line(1, "pages: %d", counts.TotalPages)
	}
	for i, ch := range chapters {
		if pages, ok := chapterPageCount(ch.ID, store, counts); ok {
			ow.Line(1, "%3d  %s (%d pages)", i+1, ch.DisplayName, pages)
			continue
		}
		ow.Line(1, "%3d  %s", i+1, ch.DisplayName)
	}
	return ow.String()
}

func chapterPageCount(chapterID string, store *cache.Store, counts *progress.PageCountCache) (int, bool) {
	if entry, ok := store.Get(chapterID); ok && entry.PageData != nil {
		return entry.PageData.PageCount(), true
	}
	if counts == nil {
		return 0, false
	}
	for _, r := range counts.Ranges {
		if r.ChapterID == chapterID {
			return r.PageCount, true
		}
	}
	return 0, false
}
