package book

import (
	"context"

	"github.com/xxMudCloudxx/Novel-sub000/common"
)

// ChapterText is what a text provider returns for a single chapter.
type ChapterText struct {
	Chapter    Chapter
	RawContent string
}

// ChapterTextProvider fetches raw chapter text. Network or storage
// collaborator, may block.
type ChapterTextProvider interface {
	FetchChapterText(ctx context.Context, chapterID string) (ChapterText, error)
}

// ChapterListProvider fetches the ordered chapter list of a book.
type ChapterListProvider interface {
	FetchChapterList(ctx context.Context, bookID string) ([]Chapter, error)
}

// BookMetadataProvider fetches book metadata, used only to populate the
// leading detail page.
type BookMetadataProvider interface {
	FetchBookInfo(ctx context.Context, bookID string) (BookInfo, error)
}

// ProgressRecord is emitted on every settled navigation transition.
type ProgressRecord struct {
	BookID         string
	ChapterID      string
	PageIndex      int
	GlobalProgress float64
}

// ProgressPersistence stores reading positions. LoadProgress returns false
// when no position has been saved for the book.
type ProgressPersistence interface {
	SaveProgress(ctx context.Context, rec ProgressRecord) error
	LoadProgress(ctx context.Context, bookID string) (ProgressRecord, bool, error)
}

// TypographySettingsStore supplies initial typography and accepts the flip
// style choice when the user changes it. All other typography fields are
// read-only inputs to the core.
type TypographySettingsStore interface {
	Load(ctx context.Context) (Typography, error)
	StoreFlipStyle(ctx context.Context, style common.FlipStyle) error
}
