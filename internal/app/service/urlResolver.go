package service

import (
	"context"
)

// Resolver maps a short id back to the original URL.
type Resolver struct {
	storage Storage
}

func NewURLResolver(s Storage) *Resolver {
	return &Resolver{storage: s}
}

// Resolve returns storage.ErrNotFound for an unassigned id.
func (r *Resolver) Resolve(ctx context.Context, shortID int64) (string, error) {
	rec, err := r.storage.FindByShortID(ctx, shortID)
	if err != nil {
		return "", err
	}
	return rec.Original, nil
}

