package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/shorturl/internal/storage"
)

// Shortener maps an accepted URL to its record, reusing an existing one.
type Shortener struct {
	storage Storage
}

func NewShortener(s Storage) *Shortener {
	return &Shortener{storage: s}
}

// GetOrCreate returns the stored record for url or stores a new one. A
// conflict on insert means another request stored the same url first; its
// record is returned.
func (s *Shortener) GetOrCreate(ctx context.Context, url string) (*storage.URLRecord, error) {
	r, err := s.storage.FindByOriginal(ctx, url)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find by original: %w", err)
	}

	r, err = s.storage.Insert(ctx, url)
	if errors.Is(err, storage.ErrConflict) {
		r, err = s.storage.FindByOriginal(ctx, url)
	}
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	return r, nil
}
