package nav

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

func pageData(id string, pages int, first bool) *paginate.PageData {
	pd := &paginate.PageData{
		ChapterID:            id,
		ChapterName:          "Chapter " + id,
		IsFirstChapterOfBook: first,
		HasLeadingDetailPage: first,
	}
	for i := 0; i < pages; i++ {
		pd.Pages = append(pd.Pages, fmt.Sprintf("%s page %d", id, i))
	}
	return pd
}

func threeChapters() []book.Chapter {
	return []book.Chapter{
		{ID: "ch01", DisplayName: "One"},
		{ID: "ch02", DisplayName: "Two"},
		{ID: "ch03", DisplayName: "Three"},
	}
}

func TestBuildIndex(t *testing.T) {
	order := threeChapters()

	t.Run("Detail page leads when first chapter is resident", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch01": pageData("ch01", 2, true),
			"ch02": pageData("ch02", 3, false),
		}
		idx, err := BuildIndex(snapshot, order, false)
		if err != nil {
			t.Fatalf("BuildIndex: %v", err)
		}
		if idx.Len() != 6 {
			t.Fatalf("Len() = %d, want 6", idx.Len())
		}
		p, _ := idx.At(0)
		if _, ok := p.(BookDetailPage); !ok {
			t.Errorf("At(0) = %#v, want BookDetailPage", p)
		}
		p, _ = idx.At(1)
		if cp, ok := p.(ContentPage); !ok || cp.ChapterID != "ch01" || cp.PageIndex != 0 {
			t.Errorf("At(1) = %#v, want ch01 page 0", p)
		}
		p, _ = idx.At(3)
		if cp, ok := p.(ContentPage); !ok || cp.ChapterID != "ch02" || cp.PageIndex != 0 {
			t.Errorf("At(3) = %#v, want ch02 page 0", p)
		}
	})

	t.Run("No detail page without the first chapter", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch02": pageData("ch02", 3, false),
			"ch03": pageData("ch03", 2, false),
		}
		idx, err := BuildIndex(snapshot, order, false)
		if err != nil {
			t.Fatalf("BuildIndex: %v", err)
		}
		if idx.Len() != 5 {
			t.Fatalf("Len() = %d, want 5", idx.Len())
		}
		if _, ok := idx.IndexOf(BookDetailPage{}); ok {
			t.Error("detail page present without the first chapter")
		}
	})

	t.Run("Scroll mode collapses chapters to sections", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch01": pageData("ch01", 5, true),
			"ch02": pageData("ch02", 7, false),
		}
		idx, err := BuildIndex(snapshot, order, true)
		if err != nil {
			t.Fatalf("BuildIndex: %v", err)
		}
		if idx.Len() != 3 {
			t.Fatalf("Len() = %d, want detail + 2 sections", idx.Len())
		}
		p, _ := idx.At(1)
		if s, ok := p.(ChapterSection); !ok || s.ChapterID != "ch01" {
			t.Errorf("At(1) = %#v, want section ch01", p)
		}
	})

	t.Run("Idempotent and order independent", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch01": pageData("ch01", 2, true),
			"ch03": pageData("ch03", 2, false),
		}
		a, err := BuildIndex(snapshot, order, false)
		if err != nil {
			t.Fatalf("BuildIndex: %v", err)
		}
		b, err := BuildIndex(snapshot, order, false)
		if err != nil {
			t.Fatalf("BuildIndex: %v", err)
		}
		if !reflect.DeepEqual(a.pages, b.pages) {
			t.Errorf("rebuild differs:\n%v\n%v", a.pages, b.pages)
		}
		if !reflect.DeepEqual(a.pos, b.pos) {
			t.Error("identity mapping differs across rebuilds")
		}
	})

	t.Run("Unknown resident chapter is an inconsistency", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch99": pageData("ch99", 2, false),
		}
		_, err := BuildIndex(snapshot, order, false)
		var ce *book.CacheInconsistencyError
		if !errors.As(err, &ce) {
			t.Fatalf("err = %v, want CacheInconsistencyError", err)
		}
	})

	t.Run("Empty pagination is an inconsistency", func(t *testing.T) {
		snapshot := map[string]*paginate.PageData{
			"ch02": pageData("ch02", 0, false),
		}
		if _, err := BuildIndex(snapshot, order, false); err == nil {
			t.Fatal("empty pagination accepted")
		}
	})
}

func TestIndexLookups(t *testing.T) {
	order := threeChapters()
	snapshot := map[string]*paginate.PageData{
		"ch01": pageData("ch01", 2, true),
		"ch02": pageData("ch02", 3, false),
	}
	idx, err := BuildIndex(snapshot, order, false)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	t.Run("IndexOf re-anchors stable identities", func(t *testing.T) {
		li, ok := idx.IndexOf(ContentPage{ChapterID: "ch02", PageIndex: 1})
		if !ok || li != 4 {
			t.Errorf("IndexOf = (%d, %v), want (4, true)", li, ok)
		}
		if _, ok := idx.IndexOf(ContentPage{ChapterID: "ch03", PageIndex: 0}); ok {
			t.Error("found a page of a non-resident chapter")
		}
	})

	t.Run("Chapter edges", func(t *testing.T) {
		first, ok := idx.FirstOfChapter("ch02")
		if !ok || first != 3 {
			t.Errorf("FirstOfChapter = (%d, %v), want (3, true)", first, ok)
		}
		last, ok := idx.LastOfChapter("ch02")
		if !ok || last != 5 {
			t.Errorf("LastOfChapter = (%d, %v), want (5, true)", last, ok)
		}
		if _, ok := idx.FirstOfChapter("ch03"); ok {
			t.Error("edge lookup succeeded for non-resident chapter")
		}
	})

	t.Run("At bounds", func(t *testing.T) {
		if _, ok := idx.At(-1); ok {
			t.Error("At(-1) succeeded")
		}
		if _, ok := idx.At(idx.Len()); ok {
			t.Error("At(Len()) succeeded")
		}
	})
}
