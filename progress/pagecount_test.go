package progress

import (
	"errors"
	"testing"

	"github.com/xxMudCloudxx/Novel-sub000/book"
)

func threeChapterCache() *PageCountCache {
	return &PageCountCache{
		TotalPages: 200,
		Ranges: []ChapterRange{
			{ChapterID: "ch01", StartPage: 0, PageCount: 50},
			{ChapterID: "ch02", StartPage: 50, PageCount: 100},
			{ChapterID: "ch03", StartPage: 150, PageCount: 50},
		},
		FontSize: 16,
		Viewport: book.Viewport{Width: 400, Height: 800},
	}
}

func TestLocate(t *testing.T) {
	c := threeChapterCache()

	cases := []struct {
		name     string
		global   int
		chapter  string
		relative int
	}{
		{"first page", 0, "ch01", 0},
		{"last page of first chapter", 49, "ch01", 49},
		{"first page of second chapter", 50, "ch02", 0},
		{"middle", 100, "ch02", 50},
		{"first page of last chapter", 150, "ch03", 0},
		{"last page", 199, "ch03", 49},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, rel, err := c.Locate(tc.global)
			if err != nil {
				t.Fatalf("Locate(%d): %v", tc.global, err)
			}
			if r.ChapterID != tc.chapter || rel != tc.relative {
				t.Errorf("Locate(%d) = (%s, %d), want (%s, %d)", tc.global, r.ChapterID, rel, tc.chapter, tc.relative)
			}
		})
	}

	t.Run("Out of range", func(t *testing.T) {
		if _, _, err := c.Locate(-1); !errors.Is(err, book.ErrOutOfBounds) {
			t.Errorf("Locate(-1) err = %v", err)
		}
		if _, _, err := c.Locate(200); !errors.Is(err, book.ErrOutOfBounds) {
			t.Errorf("Locate(200) err = %v", err)
		}
	})

	t.Run("Nil cache", func(t *testing.T) {
		var nilCache *PageCountCache
		if _, _, err := nilCache.Locate(0); !errors.Is(err, book.ErrNoPageCount) {
			t.Errorf("err = %v, want ErrNoPageCount", err)
		}
	})
}

func TestLocateFraction(t *testing.T) {
	c := threeChapterCache()

	t.Run("Halfway lands in the middle chapter", func(t *testing.T) {
		r, rel, err := c.LocateFraction(0.5)
		if err != nil {
			t.Fatalf("LocateFraction(0.5): %v", err)
		}
		if r.ChapterID != "ch02" || rel != 50 {
			t.Errorf("got (%s, %d), want (ch02, 50)", r.ChapterID, rel)
		}
	})

	t.Run("Edges clamp", func(t *testing.T) {
		r, rel, err := c.LocateFraction(0)
		if err != nil || r.ChapterID != "ch01" || rel != 0 {
			t.Errorf("LocateFraction(0) = (%s, %d, %v)", r.ChapterID, rel, err)
		}
		r, rel, err = c.LocateFraction(1)
		if err != nil || r.ChapterID != "ch03" || rel != 49 {
			t.Errorf("LocateFraction(1) = (%s, %d, %v)", r.ChapterID, rel, err)
		}
		r, rel, err = c.LocateFraction(1.7)
		if err != nil || r.ChapterID != "ch03" || rel != 49 {
			t.Errorf("LocateFraction(1.7) = (%s, %d, %v)", r.ChapterID, rel, err)
		}
	})
}

func TestGlobalProgress(t *testing.T) {
	c := threeChapterCache()

	t.Run("Last page reads complete", func(t *testing.T) {
		p, err := c.GlobalProgress("ch03", 49)
		if err != nil {
			t.Fatalf("GlobalProgress: %v", err)
		}
		if p != 1.0 {
			t.Errorf("GlobalProgress = %v, want 1.0", p)
		}
	})

	t.Run("Monotonic over the linear axis", func(t *testing.T) {
		prev := -1.0
		for _, r := range c.Ranges {
			for i := 0; i < r.PageCount; i++ {
				p, err := c.GlobalProgress(r.ChapterID, i)
				if err != nil {
					t.Fatalf("GlobalProgress(%s, %d): %v", r.ChapterID, i, err)
				}
				if p <= prev {
					t.Fatalf("progress regressed at (%s, %d): %v <= %v", r.ChapterID, i, p, prev)
				}
				prev = p
			}
		}
	})

	t.Run("Seek round trip stays within one page", func(t *testing.T) {
		for _, frac := range []float64{0.1, 0.25, 0.5, 0.77, 0.99} {
			r, rel, err := c.LocateFraction(frac)
			if err != nil {
				t.Fatalf("LocateFraction(%v): %v", frac, err)
			}
			p, err := c.GlobalProgress(r.ChapterID, rel)
			if err != nil {
				t.Fatalf("GlobalProgress: %v", err)
			}
			onePage := 1.0 / float64(c.TotalPages)
			if p < frac-onePage || p > frac+onePage {
				t.Errorf("seek(%v) reports %v, more than one page off", frac, p)
			}
		}
	})

	t.Run("Unknown chapter", func(t *testing.T) {
		if _, err := c.GlobalProgress("ch99", 0); !errors.Is(err, book.ErrOutOfBounds) {
			t.Errorf("err = %v, want ErrOutOfBounds", err)
		}
	})
}

func TestValidFor(t *testing.T) {
	c := threeChapterCache()
	vp := book.Viewport{Width: 400, Height: 800}

	if !c.ValidFor(vp, book.Typography{FontSize: 16}) {
		t.Error("cache should be valid for its own key")
	}
	if c.ValidFor(vp, book.Typography{FontSize: 18}) {
		t.Error("cache valid across a font size change")
	}
	if c.ValidFor(book.Viewport{Width: 500, Height: 800}, book.Typography{FontSize: 16}) {
		t.Error("cache valid across a viewport change")
	}
	var nilCache *PageCountCache
	if nilCache.ValidFor(vp, book.Typography{FontSize: 16}) {
		t.Error("nil cache reported valid")
	}
}
