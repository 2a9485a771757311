package nav

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/common"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
	"github.com/xxMudCloudxx/Novel-sub000/progress"
)

// Content sized against a 400x800 viewport at font size 16: 23 full-width
// runes per line, 29 lines per page. The middle chapter paginates to exactly
// 10 pages at 16px and 15 pages at 20px.
func testChapters() ([]book.Chapter, map[string]string) {
	order := []book.Chapter{
		{ID: "ch00", DisplayName: "One"},
		{ID: "ch01", DisplayName: "Two"},
		{ID: "ch02", DisplayName: "Three"},
	}
	contents := map[string]string{
		"ch00": strings.Repeat("字", 100),
		"ch01": strings.Repeat("字", 6200),
		"ch02": strings.Repeat("字", 50),
	}
	return order, contents
}

type memProvider struct {
	mu       sync.Mutex
	contents map[string]string
	chapters map[string]book.Chapter
	calls    int
}

func (p *memProvider) FetchChapterText(_ context.Context, id string) (book.ChapterText, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return book.ChapterText{Chapter: p.chapters[id], RawContent: p.contents[id]}, nil
}

type memPersistence struct {
	mu      sync.Mutex
	seed    *book.ProgressRecord
	records []book.ProgressRecord
}

func (p *memPersistence) SaveProgress(_ context.Context, rec book.ProgressRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *memPersistence) LoadProgress(_ context.Context, _ string) (book.ProgressRecord, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seed == nil {
		return book.ProgressRecord{}, false, nil
	}
	return *p.seed, true, nil
}

func (p *memPersistence) last() (book.ProgressRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.records) == 0 {
		return book.ProgressRecord{}, false
	}
	return p.records[len(p.records)-1], true
}

type memSettings struct {
	mu    sync.Mutex
	typo  book.Typography
	flips []common.FlipStyle
}

func (s *memSettings) Load(_ context.Context) (book.Typography, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typo, nil
}

func (s *memSettings) StoreFlipStyle(_ context.Context, style common.FlipStyle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flips = append(s.flips, style)
	return nil
}

type fixture struct {
	machine     *Machine
	store       *cache.Store
	engine      *progress.Engine
	persistence *memPersistence
	settings    *memSettings
	order       []book.Chapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	order, contents := testChapters()
	chapters := make(map[string]book.Chapter, len(order))
	for _, ch := range order {
		chapters[ch.ID] = ch
	}
	log := zaptest.NewLogger(t)
	provider := &memProvider{contents: contents, chapters: chapters}
	store := cache.NewStore(12, log)
	paginator := paginate.NewPaginator(paginate.DefaultLayout())
	sched := cache.NewScheduler(store, provider, paginator,
		cache.SchedulerOptions{MinRadius: 2, MaxRadius: 4, FetchDelay: time.Millisecond}, log)
	engine := progress.NewEngine(provider, store, paginator,
		progress.EngineOptions{FetchAttempts: 1, FetchDelay: time.Millisecond}, log)
	persistence := &memPersistence{}
	settings := &memSettings{typo: book.Typography{FontSize: 16, FlipStyle: common.FlipStyleSlide}}

	m := NewMachine("book-1", order, store, sched, engine, persistence, settings, log)
	t.Cleanup(m.Close)
	return &fixture{machine: m, store: store, engine: engine, persistence: persistence, settings: settings, order: order}
}

// newWindowFixture builds a book of single-page chapters for preload window
// assertions.
func newWindowFixture(t *testing.T, chapterCount, minRadius, maxRadius int) *fixture {
	t.Helper()
	order := make([]book.Chapter, chapterCount)
	contents := make(map[string]string, chapterCount)
	chapters := make(map[string]book.Chapter, chapterCount)
	for i := range order {
		id := fmt.Sprintf("ch%02d", i)
		order[i] = book.Chapter{ID: id, DisplayName: fmt.Sprintf("Chapter %d", i+1)}
		contents[id] = strings.Repeat("字", 50)
		chapters[id] = order[i]
	}

	log := zaptest.NewLogger(t)
	provider := &memProvider{contents: contents, chapters: chapters}
	store := cache.NewStore(12, log)
	paginator := paginate.NewPaginator(paginate.DefaultLayout())
	sched := cache.NewScheduler(store, provider, paginator,
		cache.SchedulerOptions{MinRadius: minRadius, MaxRadius: maxRadius, FetchDelay: time.Millisecond}, log)
	engine := progress.NewEngine(provider, store, paginator,
		progress.EngineOptions{FetchAttempts: 1, FetchDelay: time.Millisecond}, log)
	persistence := &memPersistence{}
	settings := &memSettings{typo: book.Typography{FontSize: 16, FlipStyle: common.FlipStyleSlide}}

	m := NewMachine("book-w", order, store, sched, engine, persistence, settings, log)
	t.Cleanup(m.Close)
	return &fixture{machine: m, store: store, engine: engine, persistence: persistence, settings: settings, order: order}
}

func testVP() book.Viewport { return book.Viewport{Width: 400, Height: 800} }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (f *fixture) waitAllPaginated(t *testing.T) {
	t.Helper()
	waitFor(t, "all chapters paginated", func() bool {
		return len(f.store.PaginatedSnapshot()) == len(f.order)
	})
}

func TestMachineStart(t *testing.T) {
	t.Run("Fresh book opens on the detail page", func(t *testing.T) {
		f := newFixture(t)
		st, err := f.machine.Start(context.Background(), testVP())
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if !st.OnDetailPage {
			t.Errorf("state = %+v, want detail page", st)
		}
		if st.ChapterID != "ch00" || st.LinearIndex != 0 {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("Saved progress seeds the position", func(t *testing.T) {
		f := newFixture(t)
		f.persistence.seed = &book.ProgressRecord{BookID: "book-1", ChapterID: "ch01", PageIndex: 2}

		st, err := f.machine.Start(context.Background(), testVP())
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if st.OnDetailPage || st.ChapterID != "ch01" || st.PageIndex != 2 {
			t.Errorf("state = %+v, want ch01 page 2", st)
		}
	})
}

func TestMachineFlip(t *testing.T) {
	ctx := context.Background()

	t.Run("Detail page to first content page and back", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		st, err := f.machine.Flip(ctx, common.FlipDirectionForward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st.OnDetailPage || st.ChapterID != "ch00" || st.PageIndex != 0 {
			t.Errorf("state = %+v, want ch00 page 0", st)
		}

		st, err = f.machine.Flip(ctx, common.FlipDirectionBackward)
		if err != nil {
			t.Fatalf("Flip back: %v", err)
		}
		if !st.OnDetailPage {
			t.Errorf("state = %+v, want detail page", st)
		}
	})

	t.Run("Flip before the book start is a no-op", func(t *testing.T) {
		f := newFixture(t)
		st0, err := f.machine.Start(ctx, testVP())
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		st, err := f.machine.Flip(ctx, common.FlipDirectionBackward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st != st0 {
			t.Errorf("boundary flip moved: %+v -> %+v", st0, st)
		}
	})

	t.Run("Forward crossing lands on the next chapter's first page", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		// detail -> ch00 page 0 (its only page) -> crossing
		if _, err := f.machine.Flip(ctx, common.FlipDirectionForward); err != nil {
			t.Fatalf("Flip: %v", err)
		}
		st, err := f.machine.Flip(ctx, common.FlipDirectionForward)
		if err != nil {
			t.Fatalf("crossing flip: %v", err)
		}
		if st.ChapterID != "ch01" || st.PageIndex != 0 {
			t.Errorf("state = %+v, want ch01 page 0", st)
		}
	})

	t.Run("Backward crossing lands on the previous chapter's last page", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.waitAllPaginated(t)

		if _, err := f.machine.SwitchToChapter(ctx, "ch02"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		st, err := f.machine.Flip(ctx, common.FlipDirectionBackward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st.ChapterID != "ch01" || st.PageIndex != 9 {
			t.Errorf("state = %+v, want ch01 page 9", st)
		}
	})

	t.Run("Flip past the book end is a no-op", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		st0, err := f.machine.SwitchToChapter(ctx, "ch02")
		if err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		st, err := f.machine.Flip(ctx, common.FlipDirectionForward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st.ChapterIndex != st0.ChapterIndex || st.PageIndex != st0.PageIndex {
			t.Errorf("boundary flip moved: %+v -> %+v", st0, st)
		}
	})
}

func TestMachineSwitchToChapter(t *testing.T) {
	ctx := context.Background()

	t.Run("Direct jump", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		st, err := f.machine.SwitchToChapter(ctx, "ch01")
		if err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		if st.ChapterID != "ch01" || st.PageIndex != 0 || st.OnDetailPage {
			t.Errorf("state = %+v, want ch01 page 0", st)
		}
	})

	t.Run("Unknown chapter keeps the last good position", func(t *testing.T) {
		f := newFixture(t)
		st0, err := f.machine.Start(ctx, testVP())
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		st, err := f.machine.SwitchToChapter(ctx, "ch99")
		if err == nil {
			t.Fatal("expected error for unknown chapter")
		}
		if !st.HasError || st.ErrMessage == "" {
			t.Errorf("state = %+v, want error flagged", st)
		}
		if st.LinearIndex != st0.LinearIndex || st.ChapterID != st0.ChapterID {
			t.Errorf("failed transition moved the position: %+v", st)
		}
	})
}

func TestMachineSeek(t *testing.T) {
	ctx := context.Background()

	t.Run("Seek without page counts reports progress unknown", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.engine.Invalidate()
		if _, err := f.machine.SeekToGlobalProgress(ctx, 0.5); err != book.ErrNoPageCount {
			t.Errorf("err = %v, want ErrNoPageCount", err)
		}
	})

	t.Run("Seek lands by global page", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		waitFor(t, "page count cache", func() bool {
			_, ok := f.engine.Result()
			return ok
		})

		// 12 global pages: ch00 [0,1), ch01 [1,11), ch02 [11,12);
		// 0.5 resolves to global page 6, ch01 relative page 5
		st, err := f.machine.SeekToGlobalProgress(ctx, 0.5)
		if err != nil {
			t.Fatalf("SeekToGlobalProgress: %v", err)
		}
		if st.ChapterID != "ch01" || st.PageIndex != 5 {
			t.Errorf("state = %+v, want ch01 page 5", st)
		}
		if !st.HasProgress {
			t.Error("settled seek carries no progress")
		}
		onePage := 1.0/12.0 + 1e-9
		if st.GlobalProgress < 0.5-onePage || st.GlobalProgress > 0.5+onePage {
			t.Errorf("GlobalProgress = %v, more than one page from 0.5", st.GlobalProgress)
		}
	})
}

func TestMachineSettingsChanged(t *testing.T) {
	ctx := context.Background()

	t.Run("Font size change re-anchors by page fraction", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := f.machine.SwitchToChapter(ctx, "ch01"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		for i := 0; i < 3; i++ {
			if _, err := f.machine.Flip(ctx, common.FlipDirectionForward); err != nil {
				t.Fatalf("Flip %d: %v", i, err)
			}
		}
		st := f.machine.State()
		if st.ChapterID != "ch01" || st.PageIndex != 3 {
			t.Fatalf("setup landed at %+v, want ch01 page 3", st)
		}

		// 10 pages at 16px, 15 pages at 20px: fraction 0.3 -> page 5 (wait
		// for pagination: 0.3 * 15 rounds to 5)
		st, err := f.machine.SettingsChanged(ctx, book.Typography{FontSize: 20, FlipStyle: common.FlipStyleSlide})
		if err != nil {
			t.Fatalf("SettingsChanged: %v", err)
		}
		if st.ChapterID != "ch01" || st.PageIndex != 5 {
			t.Errorf("state = %+v, want ch01 page 5", st)
		}
		pd := f.store.PaginatedSnapshot()["ch01"]
		if pd == nil || pd.PageCount() != 15 {
			t.Errorf("re-pagination produced %v pages, want 15", pd.PageCount())
		}
	})

	t.Run("Cosmetic change keeps pagination and position", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.waitAllPaginated(t)
		st0, err := f.machine.SwitchToChapter(ctx, "ch01")
		if err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		before := f.store.PaginatedSnapshot()["ch01"]

		st, err := f.machine.SettingsChanged(ctx, book.Typography{FontSize: 16, FlipStyle: common.FlipStyleSlide, TextColor: "#222222"})
		if err != nil {
			t.Fatalf("SettingsChanged: %v", err)
		}
		if st.LinearIndex != st0.LinearIndex {
			t.Errorf("cosmetic change moved the position")
		}
		if f.store.PaginatedSnapshot()["ch01"] != before {
			t.Error("cosmetic change re-paginated")
		}
	})

	t.Run("Flip style change is persisted and reshapes for scroll", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := f.machine.SwitchToChapter(ctx, "ch01"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}

		st, err := f.machine.SettingsChanged(ctx, book.Typography{FontSize: 16, FlipStyle: common.FlipStyleScroll})
		if err != nil {
			t.Fatalf("SettingsChanged: %v", err)
		}
		if _, ok := st.Page.(ChapterSection); !ok {
			t.Errorf("page = %#v, want chapter section in scroll mode", st.Page)
		}
		if st.ChapterID != "ch01" {
			t.Errorf("scroll reshape left chapter: %+v", st)
		}
		f.settings.mu.Lock()
		flips := len(f.settings.flips)
		f.settings.mu.Unlock()
		if flips != 1 {
			t.Errorf("flip style stored %d times, want 1", flips)
		}
	})
}

func TestMachineViewportChanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.machine.Start(ctx, testVP()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.machine.SwitchToChapter(ctx, "ch01"); err != nil {
		t.Fatalf("SwitchToChapter: %v", err)
	}
	oldCount := f.store.PaginatedSnapshot()["ch01"].PageCount()

	st, err := f.machine.ViewportChanged(ctx, book.Viewport{Width: 400, Height: 600})
	if err != nil {
		t.Fatalf("ViewportChanged: %v", err)
	}
	if st.ChapterID != "ch01" {
		t.Errorf("resize left chapter: %+v", st)
	}
	newCount := f.store.PaginatedSnapshot()["ch01"].PageCount()
	if newCount <= oldCount {
		t.Errorf("smaller viewport produced %d pages, had %d", newCount, oldCount)
	}
}

func TestMachineProgressEmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.machine.Start(ctx, testVP()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st, err := f.machine.SwitchToChapter(ctx, "ch01")
	if err != nil {
		t.Fatalf("SwitchToChapter: %v", err)
	}

	rec, ok := f.persistence.last()
	if !ok {
		t.Fatal("no progress records emitted")
	}
	if rec.BookID != "book-1" || rec.ChapterID != st.ChapterID || rec.PageIndex != st.PageIndex {
		t.Errorf("last record = %+v, state = %+v", rec, st)
	}
}

func TestPreloadWindowExpansion(t *testing.T) {
	ctx := context.Background()

	residentIs := func(f *fixture, lo, hi int) func() bool {
		return func() bool {
			ids := f.store.ResidentIDs()
			if len(ids) != hi-lo+1 {
				return false
			}
			for i, id := range ids {
				if id != fmt.Sprintf("ch%02d", lo+i) {
					return false
				}
			}
			return true
		}
	}

	t.Run("Boundary page deep inside the window keeps the narrow radius", func(t *testing.T) {
		f := newWindowFixture(t, 15, 3, 6)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := f.machine.SwitchToChapter(ctx, "ch07"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		waitFor(t, "window around ch07", residentIs(f, 4, 10))
		if _, err := f.machine.SwitchToChapter(ctx, "ch08"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		waitFor(t, "window around ch08", residentIs(f, 5, 11))

		// ch07 is a chapter-edge page but sits two chapters from either
		// window boundary - the window must recenter, not widen
		st, err := f.machine.Flip(ctx, common.FlipDirectionBackward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st.ChapterID != "ch07" {
			t.Fatalf("state = %+v, want ch07", st)
		}
		waitFor(t, "narrow window around ch07", residentIs(f, 4, 10))
		if n := f.store.Len(); n != 7 {
			t.Errorf("resident count = %d, want 7", n)
		}
	})

	t.Run("Boundary page near the window edge widens the radius", func(t *testing.T) {
		f := newWindowFixture(t, 15, 1, 3)
		if _, err := f.machine.Start(ctx, testVP()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := f.machine.SwitchToChapter(ctx, "ch07"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		waitFor(t, "window around ch07", residentIs(f, 6, 8))
		if _, err := f.machine.SwitchToChapter(ctx, "ch08"); err != nil {
			t.Fatalf("SwitchToChapter: %v", err)
		}
		waitFor(t, "window around ch08", residentIs(f, 7, 9))

		// ch07 borders the trailing window edge, so the backward flip is
		// sustained directional reading and triggers expansion
		st, err := f.machine.Flip(ctx, common.FlipDirectionBackward)
		if err != nil {
			t.Fatalf("Flip: %v", err)
		}
		if st.ChapterID != "ch07" {
			t.Fatalf("state = %+v, want ch07", st)
		}
		waitFor(t, "widened window around ch07", residentIs(f, 4, 10))
	})
}
