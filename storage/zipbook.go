// Package storage provides local reference implementations of the reader's
// boundary contracts: a zip-archived book as chapter source, a SQLite store
// for progress and typography, and a caching metadata wrapper.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	zip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"gopkg.in/yaml.v3"

	"github.com/xxMudCloudxx/Novel-sub000/archive"
	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/common"
)

// bookMeta is the optional book.yaml entry at the archive root.
type bookMeta struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	Cover       string `yaml:"cover"`
}

// ZipBook serves chapters from a zip archive of plain text (or HTML) files,
// one file per chapter, ordered by natural file name order. An optional
// book.yaml entry supplies metadata for the detail page. Implements
// ChapterTextProvider, ChapterListProvider and BookMetadataProvider.
type ZipBook struct {
	path string
	info book.BookInfo

	mu      sync.Mutex
	order   []book.Chapter
	entries map[string]string // chapter id -> entry name
}

// OpenZipBook scans the archive and builds the chapter list. Chapter identity
// is the slugified entry name so it stays stable across re-opens; the book id
// is derived from the archive path.
func OpenZipBook(bookPath string) (*ZipBook, error) {
	b := &ZipBook{
		path:    bookPath,
		entries: make(map[string]string),
	}
	b.info = book.BookInfo{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+bookPath)).String(),
		Title: strings.TrimSuffix(path.Base(strings.ReplaceAll(bookPath, "\\", "/")), ".zip"),
	}

	var names []string
	var meta []byte
	err := archive.Walk(bookPath, "", func(_ string, f *zip.File) error {
		name := f.FileHeader.Name
		switch {
		case name == "book.yaml":
			data, err := readZipFile(f)
			if err != nil {
				return err
			}
			meta = data
		case strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".html"):
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning book archive %s: %w", bookPath, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("book archive %s has no chapter files", bookPath)
	}
	sort.Sort(natural.StringSlice(names))

	if len(meta) > 0 {
		var m bookMeta
		dec := yaml.NewDecoder(strings.NewReader(string(meta)))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("parsing book.yaml in %s: %w", bookPath, err)
		}
		if m.Title != "" {
			b.info.Title = m.Title
		}
		b.info.Author = m.Author
		b.info.Description = m.Description
		b.info.CoverURL = m.Cover
	}

	for i, name := range names {
		id := slug.Make(chapterTitle(name))
		if _, dup := b.entries[id]; dup {
			id = fmt.Sprintf("%s-%d", id, i)
		}
		b.entries[id] = name
		b.order = append(b.order, book.Chapter{
			ID:          id,
			DisplayName: chapterTitle(name),
			Ordinal:     fmt.Sprintf("%d", i+1),
			AccessTier:  common.AccessTierFree,
		})
	}
	return b, nil
}

func chapterTitle(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	return base
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// BookID returns the stable identifier derived from the archive path.
func (b *ZipBook) BookID() string {
	return b.info.ID
}

func (b *ZipBook) FetchChapterList(_ context.Context, _ string) ([]book.Chapter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]book.Chapter, len(b.order))
	copy(out, b.order)
	return out, nil
}

func (b *ZipBook) FetchBookInfo(_ context.Context, _ string) (book.BookInfo, error) {
	return b.info, nil
}

func (b *ZipBook) FetchChapterText(ctx context.Context, chapterID string) (book.ChapterText, error) {
	b.mu.Lock()
	entryName, ok := b.entries[chapterID]
	var ch book.Chapter
	for _, c := range b.order {
		if c.ID == chapterID {
			ch = c
			break
		}
	}
	b.mu.Unlock()

	if !ok {
		return book.ChapterText{}, &book.FetchError{ChapterID: chapterID, Err: book.ErrOutOfBounds}
	}
	if err := ctx.Err(); err != nil {
		return book.ChapterText{}, err
	}

	var data []byte
	err := archive.Walk(b.path, entryName, func(_ string, f *zip.File) error {
		if f.FileHeader.Name != entryName || data != nil {
			return nil
		}
		d, err := readZipFile(f)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return book.ChapterText{}, &book.FetchError{ChapterID: chapterID, Err: err}
	}
	if data == nil {
		return book.ChapterText{}, &book.FetchError{ChapterID: chapterID, Err: fmt.Errorf("entry %s vanished from archive", entryName)}
	}
	return book.ChapterText{Chapter: ch, RawContent: string(data)}, nil
}
