package nav

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/common"
	"github.com/xxMudCloudxx/Novel-sub000/progress"
)

// State is the navigation aggregate. It is an immutable value replaced
// wholesale on each transition - external callers only observe snapshots.
// The detail page is modeled explicitly through OnDetailPage and the Page
// union, never through an integer sentinel.
type State struct {
	LinearIndex  int
	Page         VirtualPage
	ChapterIndex int
	ChapterID    string
	PageIndex    int
	OnDetailPage bool

	GlobalProgress float64
	HasProgress    bool

	HasError   bool
	ErrMessage string
}

// Machine owns the NavigationState and the virtual page index, and turns
// navigation intents into settled states plus cache side effects. One
// machine per open book; transitions are serialized by its lock.
type Machine struct {
	bookID      string
	order       []book.Chapter
	store       *cache.Store
	sched       *cache.Scheduler
	engine      *progress.Engine
	persistence book.ProgressPersistence
	settings    book.TypographySettingsStore
	log         *zap.Logger

	mu    sync.Mutex
	vp    book.Viewport
	typo  book.Typography
	index *Index
	state State

	// background preload and whole-book pagination run under bg so a
	// relayout can cancel and drain them before invalidating
	bg       context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

func NewMachine(bookID string, order []book.Chapter, store *cache.Store, sched *cache.Scheduler,
	engine *progress.Engine, persistence book.ProgressPersistence, settings book.TypographySettingsStore,
	log *zap.Logger) *Machine {

	return &Machine{
		bookID:      bookID,
		order:       order,
		store:       store,
		sched:       sched,
		engine:      engine,
		persistence: persistence,
		settings:    settings,
		log:         log,
	}
}

// Start loads typography, seeds the position from saved progress when one
// exists, makes the starting chapter resident and builds the first index.
// The whole-book pagination engine and the preload window are kicked off in
// the background.
func (m *Machine) Start(ctx context.Context, vp book.Viewport) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return State{}, errors.New("book has no chapters")
	}
	typo, err := m.settings.Load(ctx)
	if err != nil {
		return State{}, fmt.Errorf("loading typography settings: %w", err)
	}
	m.vp = vp
	m.typo = typo
	m.bg, m.bgCancel = context.WithCancel(context.Background())

	chapterIndex, pageIndex := 0, 0
	if rec, ok, err := m.persistence.LoadProgress(ctx, m.bookID); err != nil {
		m.log.Warn("Unable to load saved progress", zap.Error(err))
	} else if ok {
		if i, found := m.chapterIndexOf(rec.ChapterID); found {
			chapterIndex, pageIndex = i, rec.PageIndex
		}
	}

	entry, err := m.sched.EnsureChapter(ctx, chapterIndex, m.order, m.vp, m.typo)
	if err != nil {
		return State{}, err
	}
	if err := m.rebuildIndex(); err != nil {
		return State{}, err
	}

	var li int
	switch {
	case m.scroll():
		li, _ = m.index.FirstOfChapter(entry.Chapter.ID)
	case chapterIndex == 0 && pageIndex == 0 && entry.PageData.HasLeadingDetailPage:
		li, _ = m.index.IndexOf(BookDetailPage{})
	default:
		li = m.anchorContentPage(entry.Chapter.ID, pageIndex)
	}
	m.settle(ctx, li)

	m.startEngine()
	m.maintainWindow(chapterIndex, false)
	return m.state, nil
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops and drains background preload and pagination work.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.bgCancel != nil {
		m.bgCancel()
	}
	m.mu.Unlock()
	m.engine.Cancel()
	m.wg.Wait()
}

// Flip moves one step through the virtual sequence. Past either end of the
// resident index it becomes a chapter boundary crossing; past either end of
// the book it is a no-op.
func (m *Machine) Flip(ctx context.Context, dir common.FlipDirection) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == nil {
		return m.state, errors.New("navigation not started")
	}
	next := m.state.LinearIndex + dir.Offset()
	if next >= 0 && next < m.index.Len() {
		m.settle(ctx, next)
		m.maintainWindow(m.state.ChapterIndex, m.atChapterEdge() && m.nearWindowEdge(m.state.ChapterIndex))
		return m.state, nil
	}
	return m.crossBoundary(ctx, dir)
}

// crossBoundary resolves the chapter adjacent to the current one, makes it
// resident (which may block on a fetch) and re-anchors at its nearest edge
// page. Callers hold the lock.
func (m *Machine) crossBoundary(ctx context.Context, dir common.FlipDirection) (State, error) {
	target := m.state.ChapterIndex + dir.Offset()
	if target < 0 || target >= len(m.order) {
		m.log.Debug("Flip at book boundary", zap.Int("chapter", m.state.ChapterIndex))
		return m.state, nil
	}

	entry, err := m.sched.EnsureChapter(ctx, target, m.order, m.vp, m.typo)
	if err != nil {
		return m.fail(err)
	}
	if err := m.rebuildIndex(); err != nil {
		return m.fail(err)
	}

	var li int
	var ok bool
	if dir == common.FlipDirectionForward {
		li, ok = m.index.FirstOfChapter(entry.Chapter.ID)
	} else {
		li, ok = m.index.LastOfChapter(entry.Chapter.ID)
	}
	if !ok {
		return m.fail(&book.CacheInconsistencyError{ChapterID: entry.Chapter.ID, Reason: "chapter absent from rebuilt index"})
	}
	m.settle(ctx, li)
	m.maintainWindow(target, true)
	return m.state, nil
}

// SwitchToChapter jumps directly to the first page of the given chapter.
func (m *Machine) SwitchToChapter(ctx context.Context, chapterID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, found := m.chapterIndexOf(chapterID)
	if !found {
		return m.fail(fmt.Errorf("chapter %q: %w", chapterID, book.ErrOutOfBounds))
	}
	return m.jumpTo(ctx, target, 0)
}

// SeekToGlobalProgress jumps to the page at fraction p of the whole book.
// Without a page count cache valid for the active settings the seek reports
// that progress is unknown and the position does not move.
func (m *Machine) SeekToGlobalProgress(ctx context.Context, p float64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts, ok := m.engine.Result()
	if !ok || !counts.ValidFor(m.vp, m.typo) {
		return m.state, book.ErrNoPageCount
	}
	r, rel, err := counts.LocateFraction(p)
	if err != nil {
		return m.state, err
	}
	target, found := m.chapterIndexOf(r.ChapterID)
	if !found {
		return m.fail(&book.CacheInconsistencyError{ChapterID: r.ChapterID, Reason: "page count range for unknown chapter"})
	}
	return m.jumpTo(ctx, target, rel)
}

// jumpTo is the shared direct-jump path. Callers hold the lock.
func (m *Machine) jumpTo(ctx context.Context, target, pageIndex int) (State, error) {
	entry, err := m.sched.EnsureChapter(ctx, target, m.order, m.vp, m.typo)
	if err != nil {
		return m.fail(err)
	}
	if err := m.rebuildIndex(); err != nil {
		return m.fail(err)
	}

	var li int
	if m.scroll() {
		li, _ = m.index.FirstOfChapter(entry.Chapter.ID)
	} else {
		li = m.anchorContentPage(entry.Chapter.ID, pageIndex)
	}
	m.settle(ctx, li)
	m.maintainWindow(target, false)
	return m.state, nil
}

// SettingsChanged applies new typography. Cosmetic changes keep pagination;
// a flip-style change reshapes the index; a font size change invalidates all
// pagination and the page count cache, re-paginates the current chapter and
// re-anchors by relative page fraction within it.
func (m *Machine) SettingsChanged(ctx context.Context, typo book.Typography) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.typo
	if typo.FlipStyle != old.FlipStyle {
		if err := m.settings.StoreFlipStyle(ctx, typo.FlipStyle); err != nil {
			m.log.Warn("Unable to persist flip style", zap.Error(err))
		}
	}

	if !old.LayoutChanged(typo) {
		m.typo = typo
		if typo.FlipStyle.IsScroll() == old.FlipStyle.IsScroll() {
			return m.state, nil
		}
		// page/section shape flips, pagination itself survives
		if err := m.rebuildIndex(); err != nil {
			return m.fail(err)
		}
		m.settle(ctx, m.anchorCurrent())
		return m.state, nil
	}

	m.typo = typo
	return m.relayout(ctx)
}

// ViewportChanged follows the same invalidation and re-anchoring path as a
// font size change, keyed on the viewport.
func (m *Machine) ViewportChanged(ctx context.Context, vp book.Viewport) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !vp.Valid() || vp == m.vp {
		return m.state, nil
	}
	m.vp = vp
	return m.relayout(ctx)
}

// relayout discards every derived layout artifact, re-paginates the current
// chapter and re-anchors by page fraction. In-flight preloads are cancelled
// and drained first so none of them can write pagination computed under the
// old settings. Callers hold the lock.
func (m *Machine) relayout(ctx context.Context) (State, error) {
	if m.bg == nil {
		return m.state, errors.New("navigation not started")
	}
	fraction := m.currentFraction()

	m.engine.Invalidate()
	m.bgCancel()
	m.wg.Wait()
	m.bg, m.bgCancel = context.WithCancel(context.Background())
	m.store.InvalidatePagination()

	entry, err := m.sched.EnsureChapter(ctx, m.state.ChapterIndex, m.order, m.vp, m.typo)
	if err != nil {
		return m.fail(err)
	}
	if err := m.rebuildIndex(); err != nil {
		return m.fail(err)
	}

	var li int
	switch {
	case m.scroll():
		li, _ = m.index.FirstOfChapter(entry.Chapter.ID)
	case m.state.OnDetailPage:
		li, _ = m.index.IndexOf(BookDetailPage{})
	default:
		newPage := int(math.Round(fraction * float64(entry.PageData.PageCount())))
		li = m.anchorContentPage(entry.Chapter.ID, newPage)
	}
	m.settle(ctx, li)

	m.startEngine()
	m.maintainWindow(m.state.ChapterIndex, false)
	return m.state, nil
}

// currentFraction is the relative position within the current chapter, used
// to survive page boundary shifts across re-pagination.
func (m *Machine) currentFraction() float64 {
	if m.state.OnDetailPage {
		return 0
	}
	pd, ok := m.store.PaginatedSnapshot()[m.state.ChapterID]
	if !ok || pd.PageCount() == 0 {
		return 0
	}
	return float64(m.state.PageIndex) / float64(pd.PageCount())
}

// settle classifies the page at linear position li into the next state and
// emits a progress record. Callers hold the lock.
func (m *Machine) settle(ctx context.Context, li int) {
	page, ok := m.index.At(li)
	if !ok {
		return
	}

	next := State{LinearIndex: li, Page: page}
	switch p := page.(type) {
	case BookDetailPage:
		next.ChapterIndex = 0
		next.ChapterID = m.order[0].ID
		next.OnDetailPage = true
	case ContentPage:
		next.ChapterIndex, _ = m.chapterIndexOf(p.ChapterID)
		next.ChapterID = p.ChapterID
		next.PageIndex = p.PageIndex
	case ChapterSection:
		next.ChapterIndex, _ = m.chapterIndexOf(p.ChapterID)
		next.ChapterID = p.ChapterID
	}

	if counts, ok := m.engine.Result(); ok && counts.ValidFor(m.vp, m.typo) && !next.OnDetailPage {
		if gp, err := counts.GlobalProgress(next.ChapterID, next.PageIndex); err == nil {
			next.GlobalProgress = gp
			next.HasProgress = true
		}
	}
	m.state = next

	if err := m.persistence.SaveProgress(ctx, book.ProgressRecord{
		BookID:         m.bookID,
		ChapterID:      next.ChapterID,
		PageIndex:      next.PageIndex,
		GlobalProgress: next.GlobalProgress,
	}); err != nil {
		m.log.Warn("Unable to persist reading progress", zap.Error(err))
	}
}

// fail keeps the last good position and flags the error. Callers hold the
// lock. The reader can retry the same transition.
func (m *Machine) fail(err error) (State, error) {
	m.log.Warn("Navigation transition failed", zap.Error(err))
	next := m.state
	next.HasError = true
	next.ErrMessage = err.Error()
	m.state = next
	return m.state, err
}

func (m *Machine) rebuildIndex() error {
	idx, err := BuildIndex(m.store.PaginatedSnapshot(), m.order, m.scroll())
	if err != nil {
		return err
	}
	m.index = idx
	return nil
}

// anchorContentPage maps a chapter-relative page to a linear position,
// clamping the page into the chapter's actual range.
func (m *Machine) anchorContentPage(chapterID string, pageIndex int) int {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if li, ok := m.index.IndexOf(ContentPage{ChapterID: chapterID, PageIndex: pageIndex}); ok {
		return li
	}
	if li, ok := m.index.LastOfChapter(chapterID); ok {
		return li
	}
	return 0
}

// anchorCurrent re-anchors the current identity into a rebuilt index.
func (m *Machine) anchorCurrent() int {
	if li, ok := m.index.IndexOf(m.state.Page); ok {
		return li
	}
	if m.state.OnDetailPage {
		if li, ok := m.index.IndexOf(BookDetailPage{}); ok {
			return li
		}
	}
	return m.anchorContentPage(m.state.ChapterID, m.state.PageIndex)
}

// atChapterEdge reports whether the reader sits on the first or last page of
// the current chapter, the trigger for widening the preload window.
func (m *Machine) atChapterEdge() bool {
	if m.state.OnDetailPage {
		return false
	}
	pd, ok := m.store.PaginatedSnapshot()[m.state.ChapterID]
	if !ok {
		return false
	}
	return m.state.PageIndex == 0 || m.state.PageIndex == pd.PageCount()-1
}

// nearWindowEdge reports whether chapterIndex sits within one chapter of the
// resident window boundary. Widening the preload window takes both this and a
// chapter-edge page - a boundary page deep inside the window is not a signal
// of sustained directional reading.
func (m *Machine) nearWindowEdge(chapterIndex int) bool {
	resident := make(map[string]struct{})
	for _, id := range m.store.ResidentIDs() {
		resident[id] = struct{}{}
	}
	lo, hi := -1, -1
	for i, ch := range m.order {
		if _, ok := resident[ch.ID]; ok {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 {
		return true
	}
	return chapterIndex <= lo+1 || chapterIndex >= hi-1
}

// maintainWindow reconciles the preload window around the current chapter
// and applies it in the background so resident flips stay synchronous.
// Callers hold the lock.
func (m *Machine) maintainWindow(chapterIndex int, expand bool) {
	rec := m.sched.Reconcile(chapterIndex, m.order, expand)
	if len(rec.ToFetch) == 0 && len(rec.ToEvict) == 0 {
		return
	}
	ctx, vp, typo := m.bg, m.vp, m.typo
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.sched.Preload(ctx, rec, m.order, vp, typo); err != nil && ctx.Err() == nil {
			m.log.Warn("Preload window incomplete", zap.Error(err))
		}
	}()
}

// startEngine launches whole-book pagination and drains its update stream.
// Callers hold the lock.
func (m *Machine) startEngine() {
	updates := m.engine.Start(m.bg, m.order, m.vp, m.typo)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for u := range updates {
			m.log.Debug("Whole-book pagination progress",
				zap.Int("done", u.ChaptersCalculated),
				zap.Int("total", u.TotalChapters),
				zap.Int("estimated_pages", u.EstimatedTotalPages))
		}
	}()
}

func (m *Machine) scroll() bool {
	return m.typo.FlipStyle.IsScroll()
}

func (m *Machine) chapterIndexOf(chapterID string) (int, bool) {
	for i, ch := range m.order {
		if ch.ID == chapterID {
			return i, true
		}
	}
	return 0, false
}
