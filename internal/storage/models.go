// Package storage holds the URL record model shared by every backend and the
// local backends (in memory and append-only file).
package storage

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the original URL is already stored.
	ErrConflict = errors.New("data conflict")
)

// URLRecord maps an original URL to its numeric short id.
type URLRecord struct {
	ShortID  int64  `json:"short_url"`
	Original string `json:"original_url"`
}
