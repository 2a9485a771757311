package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

type countingProvider struct {
	mu      sync.Mutex
	calls   map[string]int
	failAll bool
	block   chan struct{} // when set, fetches wait on it
	order   map[string]book.Chapter
}

func newCountingProvider(order []book.Chapter) *countingProvider {
	m := make(map[string]book.Chapter, len(order))
	for _, ch := range order {
		m[ch.ID] = ch
	}
	return &countingProvider{calls: make(map[string]int), order: m}
}

func (p *countingProvider) FetchChapterText(ctx context.Context, id string) (book.ChapterText, error) {
	p.mu.Lock()
	p.calls[id]++
	block := p.block
	fail := p.failAll
	ch := p.order[id]
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return book.ChapterText{}, ctx.Err()
		}
	}
	if fail {
		return book.ChapterText{}, errors.New("provider down")
	}
	return book.ChapterText{
		Chapter:    ch,
		RawContent: strings.Repeat("全书分页用的正文。", 40),
	}, nil
}

func (p *countingProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func testBook(n int) []book.Chapter {
	order := make([]book.Chapter, n)
	for i := range order {
		order[i] = book.Chapter{ID: fmt.Sprintf("ch%02d", i), DisplayName: fmt.Sprintf("Chapter %d", i+1), Ordinal: fmt.Sprintf("%d", i+1)}
	}
	return order
}

func newTestEngine(t *testing.T, p *countingProvider) (*Engine, *cache.Store) {
	t.Helper()
	store := cache.NewStore(12, zaptest.NewLogger(t))
	e := NewEngine(p, store, paginate.NewPaginator(paginate.DefaultLayout()),
		EngineOptions{FetchAttempts: 1, FetchDelay: time.Millisecond}, zaptest.NewLogger(t))
	return e, store
}

func drain(t *testing.T, updates <-chan Update) []Update {
	t.Helper()
	var got []Update
	for u := range updates {
		got = append(got, u)
	}
	return got
}

func TestEngineRun(t *testing.T) {
	order := testBook(5)
	vp := book.Viewport{Width: 400, Height: 800}
	typo := book.Typography{FontSize: 16}

	t.Run("Completes and publishes", func(t *testing.T) {
		p := newCountingProvider(order)
		e, _ := newTestEngine(t, p)

		got := drain(t, e.Start(context.Background(), order, vp, typo))
		if len(got) != len(order) {
			t.Fatalf("got %d updates, want %d", len(got), len(order))
		}
		last := got[len(got)-1]
		if last.ChaptersCalculated != 5 || last.TotalChapters != 5 {
			t.Errorf("final update = %+v", last)
		}

		res, ok := e.Result()
		if !ok {
			t.Fatal("no result after completed run")
		}
		if res.TotalPages != last.EstimatedTotalPages {
			t.Errorf("final estimate %d != total %d", last.EstimatedTotalPages, res.TotalPages)
		}
		sum := 0
		for i, r := range res.Ranges {
			if r.StartPage != sum {
				t.Errorf("range %d starts at %d, want %d", i, r.StartPage, sum)
			}
			sum += r.PageCount
		}
		if sum != res.TotalPages {
			t.Errorf("page counts sum to %d, total %d", sum, res.TotalPages)
		}
		if !res.ValidFor(vp, typo) {
			t.Error("published cache not valid for its own inputs")
		}
	})

	t.Run("Restart with valid cache short-circuits", func(t *testing.T) {
		p := newCountingProvider(order)
		e, _ := newTestEngine(t, p)

		drain(t, e.Start(context.Background(), order, vp, typo))
		fetched := p.totalCalls()

		got := drain(t, e.Start(context.Background(), order, vp, typo))
		if len(got) != 1 || got[0].ChaptersCalculated != got[0].TotalChapters {
			t.Errorf("restart updates = %+v, want one terminal update", got)
		}
		if p.totalCalls() != fetched {
			t.Errorf("restart refetched: %d calls, had %d", p.totalCalls(), fetched)
		}
	})

	t.Run("Resident chapters are not refetched", func(t *testing.T) {
		p := newCountingProvider(order)
		e, store := newTestEngine(t, p)
		store.Put("ch02", cache.Entry{Chapter: order[2], RawContent: "驻留章节正文。"})

		drain(t, e.Start(context.Background(), order, vp, typo))
		if p.calls["ch02"] != 0 {
			t.Errorf("ch02 fetched %d times despite being resident", p.calls["ch02"])
		}
	})

	t.Run("Fetch failure aborts without publishing", func(t *testing.T) {
		p := newCountingProvider(order)
		p.failAll = true
		e, _ := newTestEngine(t, p)

		got := drain(t, e.Start(context.Background(), order, vp, typo))
		if len(got) != 0 {
			t.Errorf("got %d updates from a failing run", len(got))
		}
		if _, ok := e.Result(); ok {
			t.Error("failing run published a result")
		}
	})

	t.Run("Cancellation mid-run", func(t *testing.T) {
		p := newCountingProvider(order)
		p.block = make(chan struct{})
		e, _ := newTestEngine(t, p)

		updates := e.Start(context.Background(), order, vp, typo)
		e.Cancel()
		if got := drain(t, updates); len(got) != 0 {
			t.Errorf("cancelled run still produced %d updates", len(got))
		}
		if _, ok := e.Result(); ok {
			t.Error("cancelled run published a result")
		}
	})

	t.Run("Invalidate discards published cache", func(t *testing.T) {
		p := newCountingProvider(order)
		e, _ := newTestEngine(t, p)

		drain(t, e.Start(context.Background(), order, vp, typo))
		if _, ok := e.Result(); !ok {
			t.Fatal("no result to invalidate")
		}
		e.Invalidate()
		if _, ok := e.Result(); ok {
			t.Error("result survived Invalidate")
		}

		got := drain(t, e.Start(context.Background(), order, vp, typo))
		if len(got) != len(order) {
			t.Errorf("recompute produced %d updates, want %d", len(got), len(order))
		}
	})
}
