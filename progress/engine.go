package progress

import (
	"context"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

// Update is emitted after each chapter of a whole-book pagination run.
// EstimatedTotalPages grows monotonically within a run and becomes exact on
// the final update.
type Update struct {
	ChaptersCalculated  int
	TotalChapters       int
	EstimatedTotalPages int
}

// EngineOptions bound the per-chapter fetch retry of a run.
type EngineOptions struct {
	FetchAttempts int
	FetchDelay    time.Duration
}

func (o *EngineOptions) setDefaults() {
	if o.FetchAttempts <= 0 {
		o.FetchAttempts = 3
	}
	if o.FetchDelay <= 0 {
		o.FetchDelay = 500 * time.Millisecond
	}
}

// Engine paginates the entire book in the background to build a
// PageCountCache. Runs are cancellable mid-chapter, and starting a run while
// a cache valid for the same font size and viewport exists short-circuits to
// that cache.
type Engine struct {
	provider  book.ChapterTextProvider
	store     *cache.Store
	paginator *paginate.Paginator
	opts      EngineOptions
	log       *zap.Logger

	mu     sync.Mutex
	result *PageCountCache
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine wires the engine to the same text provider and chapter store the
// preload path uses, so resident chapters are never refetched for counting.
func NewEngine(provider book.ChapterTextProvider, store *cache.Store, paginator *paginate.Paginator, opts EngineOptions, log *zap.Logger) *Engine {
	opts.setDefaults()
	return &Engine{
		provider:  provider,
		store:     store,
		paginator: paginator,
		opts:      opts,
		log:       log,
	}
}

// Start launches a whole-book pagination run and returns its update stream.
// The channel is closed when the run completes, fails, or is cancelled. If a
// cache valid for (vp, typo) already exists, the stream carries one final
// update and the cache is reused. A previous in-flight run is cancelled
// first.
func (e *Engine) Start(ctx context.Context, order []book.Chapter, vp book.Viewport, typo book.Typography) <-chan Update {
	e.mu.Lock()

	if e.result.ValidFor(vp, typo) {
		res := e.result
		e.mu.Unlock()
		updates := make(chan Update, 1)
		updates <- Update{
			ChaptersCalculated:  len(res.Ranges),
			TotalChapters:       len(res.Ranges),
			EstimatedTotalPages: res.TotalPages,
		}
		close(updates)
		return updates
	}

	if e.cancel != nil {
		e.cancel()
		done := e.done
		e.mu.Unlock()
		<-done
		e.mu.Lock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.result = nil
	e.mu.Unlock()

	updates := make(chan Update, len(order)+1)
	go e.run(runCtx, done, updates, order, vp, typo)
	return updates
}

func (e *Engine) run(ctx context.Context, done chan struct{}, updates chan<- Update, order []book.Chapter, vp book.Viewport, typo book.Typography) {
	defer close(done)
	defer close(updates)

	started := time.Now()
	ranges := make([]ChapterRange, 0, len(order))
	total := 0

	for i, ch := range order {
		if ctx.Err() != nil {
			e.log.Debug("Whole-book pagination cancelled",
				zap.Int("chapters_done", i), zap.Duration("elapsed", time.Since(started)))
			return
		}

		count, err := e.chapterPageCount(ctx, i, order, vp, typo)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Warn("Whole-book pagination aborted", zap.String("chapter", ch.ID), zap.Error(err))
			}
			return
		}

		ranges = append(ranges, ChapterRange{ChapterID: ch.ID, StartPage: total, PageCount: count})
		total += count
		updates <- Update{
			ChaptersCalculated:  i + 1,
			TotalChapters:       len(order),
			EstimatedTotalPages: estimateTotal(total, i+1, len(order)),
		}
	}

	res := &PageCountCache{
		TotalPages: total,
		Ranges:     ranges,
		FontSize:   typo.FontSize,
		Viewport:   vp,
	}
	e.mu.Lock()
	if ctx.Err() == nil {
		e.result = res
	}
	e.mu.Unlock()
	e.log.Info("Whole-book pagination finished",
		zap.Int("chapters", len(order)), zap.Int("pages", total), zap.Duration("elapsed", time.Since(started)))
}

// chapterPageCount paginates one chapter, reusing resident text or pagination
// from the chapter store when present.
func (e *Engine) chapterPageCount(ctx context.Context, i int, order []book.Chapter, vp book.Viewport, typo book.Typography) (int, error) {
	ch := order[i]
	raw := ""
	if entry, ok := e.store.Get(ch.ID); ok {
		if entry.PageData != nil {
			return entry.PageData.PageCount(), nil
		}
		raw = entry.RawContent
	} else {
		text, err := retry.DoWithData(
			func() (book.ChapterText, error) {
				return e.provider.FetchChapterText(ctx, ch.ID)
			},
			retry.Context(ctx),
			retry.Attempts(uint(e.opts.FetchAttempts)),
			retry.Delay(e.opts.FetchDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return 0, &book.FetchError{ChapterID: ch.ID, Err: err}
		}
		raw = text.RawContent
	}

	pd := e.paginator.Paginate(ch, raw, vp, typo, i == 0, i == len(order)-1)
	return pd.PageCount(), nil
}

func estimateTotal(pagesSoFar, chaptersDone, totalChapters int) int {
	if chaptersDone == 0 {
		return 0
	}
	return pagesSoFar * totalChapters / chaptersDone
}

// Result returns the published cache of the last completed run, if any.
func (e *Engine) Result() (*PageCountCache, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.result != nil
}

// Invalidate cancels any in-flight run and discards the published cache.
// Called on typography or viewport changes.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.result = nil
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Cancel stops any in-flight run but keeps an already published cache.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
