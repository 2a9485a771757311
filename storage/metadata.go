package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/xxMudCloudxx/Novel-sub000/book"
)

// CachedMetadata wraps a BookMetadataProvider with a TTL cache so repeated
// detail page builds do not hit the underlying source.
type CachedMetadata struct {
	inner book.BookMetadataProvider
	cache *gocache.Cache
}

func NewCachedMetadata(inner book.BookMetadataProvider, ttl time.Duration) *CachedMetadata {
	return &CachedMetadata{
		inner: inner,
		cache: gocache.New(ttl, ttl/2+time.Minute),
	}
}

func (c *CachedMetadata) FetchBookInfo(ctx context.Context, bookID string) (book.BookInfo, error) {
	if cached, ok := c.cache.Get(bookID); ok {
		return cached.(book.BookInfo), nil
	}
	info, err := c.inner.FetchBookInfo(ctx, bookID)
	if err != nil {
		return book.BookInfo{}, err
	}
	c.cache.Set(bookID, info, gocache.DefaultExpiration)
	return info, nil
}
