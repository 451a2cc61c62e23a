package service

import (
	"context"

	"github.com/atinyakov/shorturl/internal/storage"
)

// Storage is implemented by every backend: memory, file, PostgreSQL and DynamoDB.
// Lookups report a miss with storage.ErrNotFound; Insert allocates the next
// id itself and reports an already stored original with storage.ErrConflict.
type Storage interface {
	Insert(context.Context, string) (*storage.URLRecord, error)
	FindByOriginal(context.Context, string) (*storage.URLRecord, error)
	FindByShortID(context.Context, int64) (*storage.URLRecord, error)
	Count(context.Context) (int64, error)
	PingContext(context.Context) error
}

// URLValidator accepts a candidate URL and returns its normalized host.
type URLValidator interface {
	Validate(ctx context.Context, raw string) (string, error)
}

// URLServiceIface is what the HTTP handlers depend on.
type URLServiceIface interface {
	Shorten(ctx context.Context, rawURL string) (*storage.URLRecord, error)
	Resolve(ctx context.Context, shortID int64) (string, error)
	Count(ctx context.Context) (int64, error)
	PingContext(ctx context.Context) error
}
