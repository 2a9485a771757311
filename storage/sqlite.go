package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS reading_progress (
	book_id         TEXT PRIMARY KEY,
	record_id       TEXT NOT NULL,
	chapter_id      TEXT NOT NULL,
	page_index      INTEGER NOT NULL,
	global_progress REAL NOT NULL,
	updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS typography (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	font_size  INTEGER NOT NULL,
	flip_style TEXT NOT NULL,
	text_color TEXT NOT NULL,
	background TEXT NOT NULL
);
`

// SQLiteStore persists reading progress and typography settings. Implements
// ProgressPersistence and TypographySettingsStore. A single connection
// guarded by a mutex is plenty for the reader's write rate.
type SQLiteStore struct {
	mu       sync.Mutex
	conn     *sqlite.Conn
	defaults book.Typography
}

// OpenSQLiteStore opens (creating if needed) the store at path. defaults are
// returned by Load until the user changes a setting. Use ":memory:" for an
// ephemeral store.
func OpenSQLiteStore(path string, defaults book.Typography) (*SQLiteStore, error) {
	flags := sqlite.OpenReadWrite | sqlite.OpenCreate
	if path == ":memory:" {
		flags |= sqlite.OpenMemory
	}
	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, fmt.Errorf("opening reader state db %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("preparing reader state schema: %w", err)
	}
	return &SQLiteStore{conn: conn, defaults: defaults}, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SQLiteStore) SaveProgress(ctx context.Context, rec book.ProgressRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return sqlitex.Execute(s.conn, `
		INSERT INTO reading_progress (book_id, record_id, chapter_id, page_index, global_progress, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (book_id) DO UPDATE SET
			record_id = excluded.record_id,
			chapter_id = excluded.chapter_id,
			page_index = excluded.page_index,
			global_progress = excluded.global_progress,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{rec.BookID, uuid.New().String(), rec.ChapterID, rec.PageIndex, rec.GlobalProgress},
		})
}

func (s *SQLiteStore) LoadProgress(ctx context.Context, bookID string) (book.ProgressRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return book.ProgressRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec book.ProgressRecord
	found := false
	err := sqlitex.Execute(s.conn, `
		SELECT chapter_id, page_index, global_progress FROM reading_progress WHERE book_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{bookID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec = book.ProgressRecord{
					BookID:         bookID,
					ChapterID:      stmt.ColumnText(0),
					PageIndex:      stmt.ColumnInt(1),
					GlobalProgress: stmt.ColumnFloat(2),
				}
				found = true
				return nil
			},
		})
	if err != nil {
		return book.ProgressRecord{}, false, err
	}
	return rec, found, nil
}

// Load returns the stored typography, falling back to the defaults for a
// fresh store.
func (s *SQLiteStore) Load(ctx context.Context) (book.Typography, error) {
	if err := ctx.Err(); err != nil {
		return book.Typography{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	typo := s.defaults
	err := sqlitex.Execute(s.conn, `SELECT font_size, flip_style, text_color, background FROM typography WHERE id = 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				style, err := common.ParseFlipStyle(stmt.ColumnText(1))
				if err != nil {
					return err
				}
				typo = book.Typography{
					FontSize:   stmt.ColumnInt(0),
					FlipStyle:  style,
					TextColor:  stmt.ColumnText(2),
					Background: stmt.ColumnText(3),
				}
				return nil
			},
		})
	if err != nil {
		return book.Typography{}, err
	}
	return typo, nil
}

func (s *SQLiteStore) StoreFlipStyle(ctx context.Context, style common.FlipStyle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.defaults
	return sqlitex.Execute(s.conn, `
		INSERT INTO typography (id, font_size, flip_style, text_color, background)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET flip_style = excluded.flip_style`,
		&sqlitex.ExecOptions{
			Args: []any{t.FontSize, style.String(), t.TextColor, t.Background},
		})
}
