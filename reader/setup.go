// Package reader wires the pagination and navigation core to local book
// archives and implements the CLI subcommand actions.
package reader

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/cache"
	"github.com/xxMudCloudxx/Novel-sub000/config"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
	"github.com/xxMudCloudxx/Novel-sub000/progress"
	"github.com/xxMudCloudxx/Novel-sub000/storage"
)

// session bundles the wired core for one open book.
type session struct {
	source    *storage.ZipBook
	metadata  *storage.CachedMetadata
	store     *cache.Store
	sched     *cache.Scheduler
	engine    *progress.Engine
	paginator *paginate.Paginator
}

func layoutFromConfig(l config.LayoutConfig) paginate.Layout {
	return paginate.Layout{
		HorizontalPadding: l.HorizontalPadding,
		VerticalPadding:   l.VerticalPadding,
		ChromeTop:         l.ChromeTop,
		ChromeBottom:      l.ChromeBottom,
		TitleBottomMargin: l.TitleBottomMargin,
	}
}

func typographyFromConfig(t config.TypographyConfig) book.Typography {
	return book.Typography{
		FontSize:   t.FontSize,
		FlipStyle:  t.FlipStyle,
		TextColor:  t.TextColor,
		Background: t.Background,
	}
}

// newSession opens the book archive and wires store, scheduler, paginator
// and whole-book pagination engine around it.
func newSession(cfg *config.Config, bookPath string, log *zap.Logger) (*session, error) {
	source, err := storage.OpenZipBook(bookPath)
	if err != nil {
		return nil, fmt.Errorf("opening book: %w", err)
	}

	s := &session{
		source:    source,
		metadata:  storage.NewCachedMetadata(source, 24*time.Hour),
		store:     cache.NewStore(cfg.Reader.Cache.MaxResidentChapters, log),
		paginator: paginate.NewPaginator(layoutFromConfig(cfg.Reader.Layout)),
	}
	s.sched = cache.NewScheduler(s.store, source, s.paginator, cache.SchedulerOptions{
		MinRadius:     cfg.Reader.Cache.MinPreloadRadius,
		MaxRadius:     cfg.Reader.Cache.MaxPreloadRadius,
		FetchAttempts: cfg.Reader.Fetch.Attempts,
		FetchDelay:    time.Duration(cfg.Reader.Fetch.DelayMs) * time.Millisecond,
		BookID:        source.BookID(),
		Metadata:      s.metadata,
	}, log)
	s.engine = progress.NewEngine(source, s.store, s.paginator, progress.EngineOptions{
		FetchAttempts: cfg.Reader.Fetch.Attempts,
		FetchDelay:    time.Duration(cfg.Reader.Fetch.DelayMs) * time.Millisecond,
	}, log)
	return s, nil
}
