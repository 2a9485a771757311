// Package book defines the reader data model and the boundary contracts the
// navigation core consumes. Implementations of the providers live outside the
// core (network client, local storage) - see the storage package for local
// reference implementations used by the CLI.
package book

import (
	"github.com/xxMudCloudxx/Novel-sub000/common"
)

// Chapter is immutable once fetched. Identity is ID.
type Chapter struct {
	ID          string
	DisplayName string
	Ordinal     string
	AccessTier  common.AccessTier
}

// BookInfo populates the leading detail page of the first chapter.
type BookInfo struct {
	ID          string
	Title       string
	Author      string
	Description string
	CoverURL    string
}

// Viewport is the pixel size of the reading surface.
type Viewport struct {
	Width  int
	Height int
}

func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Typography holds the active reading settings. Only FontSize affects
// pagination, FlipStyle affects the shape of the virtual page sequence and
// colors are purely cosmetic.
type Typography struct {
	FontSize   int
	FlipStyle  common.FlipStyle
	TextColor  string
	Background string
}

// LayoutChanged reports whether switching from t to o invalidates pagination.
func (t Typography) LayoutChanged(o Typography) bool {
	return t.FontSize != o.FontSize
}
