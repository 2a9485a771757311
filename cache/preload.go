package cache

import (
	"context"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

const (
	DefaultMinPreloadRadius = 2
	DefaultMaxPreloadRadius = 4

	// expansion stops once the resident count crosses this share of store
	// capacity - back-pressure against unbounded growth
	backPressureNum = 4
	backPressureDen = 5

	preloadConcurrency = 4
)

// SchedulerOptions tune reconciliation radii and the per-chapter fetch retry.
// Metadata, when set, supplies the book info attached to the first chapter's
// pagination for the detail page.
type SchedulerOptions struct {
	MinRadius     int
	MaxRadius     int
	FetchAttempts int
	FetchDelay    time.Duration

	// detail page population for the first chapter
	BookID   string
	Metadata book.BookMetadataProvider
}

func (o *SchedulerOptions) setDefaults() {
	if o.MinRadius <= 0 {
		o.MinRadius = DefaultMinPreloadRadius
	}
	if o.MaxRadius < o.MinRadius {
		o.MaxRadius = DefaultMaxPreloadRadius
	}
	if o.FetchAttempts <= 0 {
		o.FetchAttempts = 3
	}
	if o.FetchDelay <= 0 {
		o.FetchDelay = 500 * time.Millisecond
	}
}

// Reconciliation is the scheduler's decision: which chapters to bring in and
// which to let go. Both slices follow chapter order.
type Reconciliation struct {
	ToFetch []string
	ToEvict []string
}

// Scheduler decides which chapters must be resident around the reading
// position and materializes that decision against the store.
type Scheduler struct {
	store     *Store
	provider  book.ChapterTextProvider
	paginator *paginate.Paginator
	opts      SchedulerOptions
	log       *zap.Logger
}

func NewScheduler(store *Store, provider book.ChapterTextProvider, paginator *paginate.Paginator, opts SchedulerOptions, log *zap.Logger) *Scheduler {
	opts.setDefaults()
	return &Scheduler{
		store:     store,
		provider:  provider,
		paginator: paginator,
		opts:      opts,
		log:       log,
	}
}

// Reconcile computes the target window around currentIndex. Normal targeting
// uses the min radius; expand widens it to the max radius while the resident
// count stays under the back-pressure threshold. The current chapter is never
// in ToEvict, and ToFetch contains only chapters that are not yet resident.
func (s *Scheduler) Reconcile(currentIndex int, order []book.Chapter, expand bool) Reconciliation {
	var rec Reconciliation
	if len(order) == 0 || currentIndex < 0 || currentIndex >= len(order) {
		return rec
	}

	radius := s.opts.MinRadius
	if expand && s.store.Len() < s.store.MaxResident()*backPressureNum/backPressureDen {
		radius = s.opts.MaxRadius
	}

	lo := max(0, currentIndex-radius)
	hi := min(len(order)-1, currentIndex+radius)

	target := make(map[string]struct{}, hi-lo+1)
	for i := lo; i <= hi; i++ {
		target[order[i].ID] = struct{}{}
	}

	resident := make(map[string]struct{})
	for _, id := range s.store.ResidentIDs() {
		resident[id] = struct{}{}
	}

	for i := lo; i <= hi; i++ {
		id := order[i].ID
		if _, ok := resident[id]; !ok {
			rec.ToFetch = append(rec.ToFetch, id)
		}
	}
	currentID := order[currentIndex].ID
	for _, ch := range order {
		if ch.ID == currentID {
			continue
		}
		if _, wanted := target[ch.ID]; wanted {
			continue
		}
		if _, ok := resident[ch.ID]; ok {
			rec.ToEvict = append(rec.ToEvict, ch.ID)
		}
	}

	s.store.SetFocus(currentID, windowIDs(order, lo, hi))
	return rec
}

func windowIDs(order []book.Chapter, lo, hi int) []string {
	ids := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		ids = append(ids, order[i].ID)
	}
	return ids
}

// Preload applies a reconciliation: evicts out-of-window chapters and fetches
// plus paginates missing ones concurrently. Per-chapter failures are isolated
// and aggregated - one failing chapter never aborts the batch.
func (s *Scheduler) Preload(ctx context.Context, rec Reconciliation, order []book.Chapter, vp book.Viewport, typo book.Typography) error {
	for _, id := range rec.ToEvict {
		s.store.Evict(id)
	}
	if len(rec.ToFetch) == 0 {
		return nil
	}

	index := make(map[string]int, len(order))
	for i, ch := range order {
		index[ch.ID] = i
	}

	var (
		mu   sync.Mutex
		errs error
	)
	g := new(errgroup.Group)
	g.SetLimit(preloadConcurrency)

	for _, id := range rec.ToFetch {
		g.Go(func() error {
			if err := s.load(ctx, id, index, order, vp, typo); err != nil {
				s.log.Warn("Chapter preload failed", zap.String("chapter", id), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// EnsureChapter is the synchronous degradation path: when navigation needs a
// chapter whose preload has not resolved it is fetched and paginated on the
// spot.
func (s *Scheduler) EnsureChapter(ctx context.Context, chapterIndex int, order []book.Chapter, vp book.Viewport, typo book.Typography) (Entry, error) {
	if chapterIndex < 0 || chapterIndex >= len(order) {
		return Entry{}, book.ErrOutOfBounds
	}
	id := order[chapterIndex].ID

	if e, ok := s.store.Get(id); ok && e.PageData != nil {
		return e, nil
	}

	index := map[string]int{id: chapterIndex}
	if err := s.load(ctx, id, index, order, vp, typo); err != nil {
		return Entry{}, err
	}
	e, ok := s.store.Get(id)
	if !ok {
		return Entry{}, &book.CacheInconsistencyError{ChapterID: id, Reason: "entry vanished right after load"}
	}
	return e, nil
}

// load fetches chapter text (bounded retry) unless already resident, then
// paginates it and stores the result.
func (s *Scheduler) load(ctx context.Context, id string, index map[string]int, order []book.Chapter, vp book.Viewport, typo book.Typography) error {
	e, resident := s.store.Get(id)
	if !resident {
		text, err := retry.DoWithData(
			func() (book.ChapterText, error) {
				return s.provider.FetchChapterText(ctx, id)
			},
			retry.Context(ctx),
			retry.Attempts(uint(s.opts.FetchAttempts)),
			retry.Delay(s.opts.FetchDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return &book.FetchError{ChapterID: id, Err: err}
		}
		e = Entry{Chapter: text.Chapter, RawContent: text.RawContent}
	}

	if e.PageData == nil {
		i := index[id]
		e.PageData = s.paginator.Paginate(e.Chapter, e.RawContent, vp, typo, i == 0, i == len(order)-1)
		if e.PageData.HasLeadingDetailPage && s.opts.Metadata != nil {
			// metadata failures degrade to a detail page without book info
			if info, err := s.opts.Metadata.FetchBookInfo(ctx, s.opts.BookID); err == nil {
				e.PageData.BookInfo = &info
			} else {
				s.log.Debug("Book info unavailable for detail page", zap.String("book", s.opts.BookID), zap.Error(err))
			}
		}
	}
	s.store.Put(id, e)
	return nil
}
